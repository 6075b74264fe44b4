package amazon

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/translate"

	"github.com/okian/commentsense/internal/domain/model"
)

// TranslateAPI is the subset of the Amazon Translate client in use.
type TranslateAPI interface {
	TranslateText(ctx context.Context, params *translate.TranslateTextInput, optFns ...func(*translate.Options)) (*translate.TranslateTextOutput, error)
}

// Translator renders text into a target language with Amazon Translate.
type Translator struct {
	api TranslateAPI
}

// NewTranslator wraps a Translate client.
func NewTranslator(api TranslateAPI) *Translator {
	return &Translator{api: api}
}

// Translate translates text. source may be "auto" to let the service detect
// the language; the detected code is returned in SourceLanguage.
func (t *Translator) Translate(ctx context.Context, text, source, target string) (model.Translation, error) {
	start := time.Now()
	out, err := t.api.TranslateText(ctx, &translate.TranslateTextInput{
		SourceLanguageCode: aws.String(source),
		TargetLanguageCode: aws.String(target),
		Text:               aws.String(text),
	})
	observe("translate", start, err)
	if err != nil {
		return model.Translation{}, fmt.Errorf("translate text: %w", err)
	}
	if out == nil || out.TranslatedText == nil {
		return model.Translation{}, fmt.Errorf("translate text: %w", ErrEmptyResponse)
	}

	tr := model.Translation{
		Text:           aws.ToString(out.TranslatedText),
		SourceLanguage: aws.ToString(out.SourceLanguageCode),
		TargetLanguage: aws.ToString(out.TargetLanguageCode),
	}
	if tr.TargetLanguage == "" {
		tr.TargetLanguage = target
	}
	return tr, nil
}
