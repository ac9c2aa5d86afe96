// Package template holds the notification template catalog for trial
// lifecycle messages and renders templates by literal placeholder
// substitution.
//
// A template fires when its DaysBeforeExpiry exactly equals an account's
// computed days remaining. Negative values address days after expiry inside
// the grace window.
package template

import (
	"context"
	"fmt"
	"html"
	"slices"
	"strconv"
	"strings"
)

// Channel is the delivery channel for a template.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Placeholders substituted by Render. Matching is literal and case-sensitive.
const (
	PlaceholderFirstName     = "{{first_name}}"
	PlaceholderDaysRemaining = "{{days_remaining}}"
	PlaceholderUpgradeURL    = "{{upgrade_url}}"
)

// Template is a notification template keyed by its trigger day.
type Template struct {
	Name             string  `yaml:"name"`
	DaysBeforeExpiry int     `yaml:"days_before_expiry"`
	Channel          Channel `yaml:"channel"`
	Subject          string  `yaml:"subject"`
	BodyHTML         string  `yaml:"body_html"`
	BodyText         string  `yaml:"body_text"`
	IsActive         bool    `yaml:"is_active"`
}

// Validate checks the template can be rendered for its channel.
func (t Template) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidTemplate)
	}
	switch t.channel() {
	case ChannelEmail:
		if t.Subject == "" {
			return fmt.Errorf("%w: %s: email subject is required", ErrInvalidTemplate, t.Name)
		}
		if t.BodyHTML == "" && t.BodyText == "" {
			return fmt.Errorf("%w: %s: email body is required", ErrInvalidTemplate, t.Name)
		}
	case ChannelSMS:
		if t.BodyText == "" {
			return fmt.Errorf("%w: %s: sms text body is required", ErrInvalidTemplate, t.Name)
		}
	default:
		return fmt.Errorf("%w: %s: unknown channel %q", ErrInvalidTemplate, t.Name, t.Channel)
	}
	return nil
}

// ChannelOrDefault returns the template channel, email when unset.
func (t Template) ChannelOrDefault() Channel {
	return t.channel()
}

func (t Template) channel() Channel {
	if t.Channel == "" {
		return ChannelEmail
	}
	return t.Channel
}

// Catalog provides the active notification templates.
type Catalog interface {
	// Active returns every active template.
	Active(ctx context.Context) ([]Template, error)
}

// Match returns the active templates whose trigger equals daysRemaining,
// ordered by name. Zero or several matches are both valid outcomes.
func Match(templates []Template, daysRemaining int) []Template {
	var out []Template
	for _, t := range templates {
		if t.IsActive && t.DaysBeforeExpiry == daysRemaining {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b Template) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Vars are the values substituted into a template.
type Vars struct {
	FirstName     string
	DaysRemaining int
	UpgradeURL    string
}

// Rendered is a template with all placeholders substituted.
type Rendered struct {
	Name     string
	Channel  Channel
	Subject  string
	BodyHTML string
	BodyText string
}

// Render substitutes placeholders in the subject and both bodies. Values
// placed into BodyHTML are HTML-escaped; the subject and text body get them
// verbatim.
func Render(t Template, v Vars) Rendered {
	days := strconv.Itoa(v.DaysRemaining)
	plain := strings.NewReplacer(
		PlaceholderFirstName, v.FirstName,
		PlaceholderDaysRemaining, days,
		PlaceholderUpgradeURL, v.UpgradeURL,
	)
	markup := strings.NewReplacer(
		PlaceholderFirstName, html.EscapeString(v.FirstName),
		PlaceholderDaysRemaining, days,
		PlaceholderUpgradeURL, html.EscapeString(v.UpgradeURL),
	)
	return Rendered{
		Name:     t.Name,
		Channel:  t.channel(),
		Subject:  plain.Replace(t.Subject),
		BodyHTML: markup.Replace(t.BodyHTML),
		BodyText: plain.Replace(t.BodyText),
	}
}
