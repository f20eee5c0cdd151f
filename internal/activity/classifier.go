// Package activity labels voyage events as productive or non-productive time.
package activity

import (
	"strings"

	"github.com/ancientfall/logistics-enrich/internal/model"
)

// NPTKeywords mark non-productive time anywhere in the event text.
var NPTKeywords = []string{
	"waiting", "wait on", "delay", "breakdown", "weather", "standby", "stand by",
	"equipment failure", "mechanical problem", "mechanical issue", "repair",
	"downtime", "no work",
}

// CargoKeywords mark productive cargo work in the event or parent event.
var CargoKeywords = []string{
	"cargo ops", "cargo operations", "loading", "offloading", "discharg",
	"backload", "bulk transfer", "deck cargo", "lifting",
}

// Label is the classification of one event.
type Label struct {
	Category model.ActivityCategory
	Reason   string
}

// Event is the text an activity rule looks at. Fields are lower-cased.
type Event struct {
	ParentEvent string
	Event       string
	Remarks     string
}

// Rule is one step of the activity cascade.
type Rule struct {
	Name  string
	Match func(e Event) (reason string, ok bool)
	Label model.ActivityCategory
}

// Classifier applies its rules in order; the first match wins. The zero
// value is not usable; use NewClassifier.
type Classifier struct {
	rules []Rule
}

// NewClassifier returns the standard cascade: NPT keywords win over cargo
// vocabulary, an empty event needs review, everything else is productive.
func NewClassifier() *Classifier {
	return &Classifier{rules: []Rule{
		{
			Name:  "npt-keyword",
			Label: model.ActivityNonProductive,
			Match: func(e Event) (string, bool) {
				return firstKeyword(e.ParentEvent+" "+e.Event+" "+e.Remarks, NPTKeywords)
			},
		},
		{
			Name:  "cargo-operation",
			Label: model.ActivityProductive,
			Match: func(e Event) (string, bool) {
				return firstKeyword(e.ParentEvent+" "+e.Event, CargoKeywords)
			},
		},
		{
			Name:  "empty-event",
			Label: model.ActivityNeedsReview,
			Match: func(e Event) (string, bool) {
				return "no event text", strings.TrimSpace(e.Event) == ""
			},
		},
		{
			Name:  "default",
			Label: model.ActivityProductive,
			Match: func(Event) (string, bool) { return "default productive", true },
		},
	}}
}

// Rules returns the cascade in evaluation order.
func (c *Classifier) Rules() []Rule {
	return c.rules
}

// Classify labels one event.
func (c *Classifier) Classify(parentEvent, event, remarks string) Label {
	e := Event{
		ParentEvent: strings.ToLower(parentEvent),
		Event:       strings.ToLower(event),
		Remarks:     strings.ToLower(remarks),
	}
	for _, r := range c.rules {
		if reason, ok := r.Match(e); ok {
			return Label{Category: r.Label, Reason: r.Name + ": " + reason}
		}
	}
	return Label{Category: model.ActivityProductive, Reason: "default: default productive"}
}

func firstKeyword(text string, keywords []string) (string, bool) {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return k, true
		}
	}
	return "", false
}
