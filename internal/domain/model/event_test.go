package model_test

import (
	"encoding/json"
	"testing"

	"github.com/okian/commentsense/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const sampleEvent = `{
  "id": "3a7c1c2e-0000-4000-8000-000000000001",
  "detail-type": "Support Ticket: Comment Created",
  "source": "aws.partner/zendesk.com/123/default",
  "detail": {
    "ticket_event": {
      "type": "Comment Created",
      "comment": {"body": "Bonjour, ceci est urgent", "is_public": true},
      "ticket": {"id": 123, "priority": "high"}
    }
  }
}`

func TestEventDecoding(t *testing.T) {
	Convey("Given a comment created notification", t, func() {
		var ev model.Event
		err := json.Unmarshal([]byte(sampleEvent), &ev)

		Convey("Then the ticket event fields should decode", func() {
			So(err, ShouldBeNil)
			So(ev.ID, ShouldEqual, "3a7c1c2e-0000-4000-8000-000000000001")
			te := ev.TicketEvent()
			So(te.Type, ShouldEqual, model.EventTypeCommentCreated)
			So(te.Comment.Body, ShouldEqual, "Bonjour, ceci est urgent")
			So(te.Comment.IsPublic, ShouldBeTrue)
			So(te.Ticket.Priority, ShouldEqual, "high")
			So(ev.TicketID(), ShouldEqual, "123")
		})
	})

	Convey("Given ticket ids in different encodings", t, func() {
		cases := map[string]string{
			`{"id": 42}`:        "42",
			`{"id": "42"}`:      "42",
			`{"id": " 7 "}`:     "7",
			`{"id": null}`:      "",
			`{"priority": "x"}`: "",
		}
		for in, want := range cases {
			var tk model.Ticket
			err := json.Unmarshal([]byte(in), &tk)
			So(err, ShouldBeNil)
			So(tk.ID.String(), ShouldEqual, want)
		}

		Convey("And an object id should be rejected", func() {
			var tk model.Ticket
			So(json.Unmarshal([]byte(`{"id": {"n": 1}}`), &tk), ShouldNotBeNil)
		})
	})
}

func TestTicketUpdateEncoding(t *testing.T) {
	Convey("Given a ticket update", t, func() {
		upd := model.TicketUpdate{Ticket: model.TicketChanges{
			Tags:    []string{"Sentiment_NEGATIVE"},
			Comment: model.TicketComment{Body: "hello", Public: false},
		}}

		Convey("Then it should serialize in the ticketing API shape", func() {
			b, err := json.Marshal(upd)
			So(err, ShouldBeNil)
			So(string(b), ShouldEqual, `{"ticket":{"tags":["Sentiment_NEGATIVE"],"comment":{"body":"hello","public":false}}}`)
		})
	})
}
