package amazon

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/comprehend"
	"github.com/aws/aws-sdk-go-v2/service/comprehend/types"

	"github.com/okian/commentsense/internal/domain/model"
)

// ComprehendAPI is the subset of the Amazon Comprehend client in use.
type ComprehendAPI interface {
	DetectDominantLanguage(ctx context.Context, params *comprehend.DetectDominantLanguageInput, optFns ...func(*comprehend.Options)) (*comprehend.DetectDominantLanguageOutput, error)
	DetectSentiment(ctx context.Context, params *comprehend.DetectSentimentInput, optFns ...func(*comprehend.Options)) (*comprehend.DetectSentimentOutput, error)
}

// Analyzer detects language and sentiment with Amazon Comprehend.
type Analyzer struct {
	api ComprehendAPI
}

// NewAnalyzer wraps a Comprehend client.
func NewAnalyzer(api ComprehendAPI) *Analyzer {
	return &Analyzer{api: api}
}

// DetectDominantLanguage returns the highest-scoring language code for text.
func (a *Analyzer) DetectDominantLanguage(ctx context.Context, text string) (string, error) {
	start := time.Now()
	out, err := a.api.DetectDominantLanguage(ctx, &comprehend.DetectDominantLanguageInput{
		Text: aws.String(text),
	})
	observe("comprehend_language", start, err)
	if err != nil {
		return "", fmt.Errorf("detect dominant language: %w", err)
	}
	if out == nil {
		return "", fmt.Errorf("detect dominant language: %w", ErrEmptyResponse)
	}

	var (
		best  string
		score float32 = -1
	)
	for _, l := range out.Languages {
		code := aws.ToString(l.LanguageCode)
		if code == "" {
			continue
		}
		if s := aws.ToFloat32(l.Score); s > score {
			best, score = code, s
		}
	}
	if best == "" {
		return "", ErrNoLanguage
	}
	return best, nil
}

// DetectSentiment scores text written in lang.
func (a *Analyzer) DetectSentiment(ctx context.Context, text, lang string) (model.Sentiment, error) {
	start := time.Now()
	out, err := a.api.DetectSentiment(ctx, &comprehend.DetectSentimentInput{
		Text:         aws.String(text),
		LanguageCode: types.LanguageCode(lang),
	})
	observe("comprehend_sentiment", start, err)
	if err != nil {
		return model.Sentiment{}, fmt.Errorf("detect sentiment: %w", err)
	}
	if out == nil || out.Sentiment == "" {
		return model.Sentiment{}, fmt.Errorf("detect sentiment: %w", ErrEmptyResponse)
	}

	s := model.Sentiment{
		Label:        string(out.Sentiment),
		LanguageCode: lang,
	}
	if sc := out.SentimentScore; sc != nil {
		s.Score = model.SentimentScore{
			Positive: aws.ToFloat32(sc.Positive),
			Negative: aws.ToFloat32(sc.Negative),
			Neutral:  aws.ToFloat32(sc.Neutral),
			Mixed:    aws.ToFloat32(sc.Mixed),
		}
	}
	return s, nil
}
