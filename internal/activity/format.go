package activity

import (
	"fmt"
	"strings"
	"time"

	"credential-client/internal/cache"
	"credential-client/internal/model"
)

const (
	JustNow  = "Just now"
	Recently = "Recently"

	WelcomeMessage = "Welcome to Blockchain Credentials!"

	dateLayout = "1/2/2006"
	week       = 7 * 24 * time.Hour
)

// RelativeTime buckets now-ts. Timestamps in the future count as "Just now";
// anything four weeks or older is shown as a date in now's location.
func RelativeTime(now, ts time.Time) string {
	delta := now.Sub(ts)
	switch {
	case delta < time.Minute:
		return JustNow
	case delta < time.Hour:
		return ago(int(delta/time.Minute), "minute")
	case delta < 24*time.Hour:
		return ago(int(delta/time.Hour), "hour")
	case delta < week:
		return ago(int(delta/(24*time.Hour)), "day")
	case delta < 4*week:
		return ago(int(delta/week), "week")
	}
	return ts.In(now.Location()).Format(dateLayout)
}

func ago(n int, unit string) string {
	return fmt.Sprintf("%d %s ago", n, plural(n, unit))
}

func plural(n int, unit string) string {
	if n > 1 {
		return unit + "s"
	}
	return unit
}

// Describe renders the one-line message for a backend activity record.
func Describe(r model.ActivityRecord) string {
	switch r.Action {
	case model.ActionIssued:
		return fmt.Sprintf("Issued \"%s\" to %s", r.CredentialType, recipientLabel(r.Counterparty))
	case model.ActionVerified:
		preview := "credential"
		if r.CredentialID != "" {
			preview = prefix(r.CredentialID, 8) + "..."
		}
		outcome := "failed"
		if r.VerificationResult != nil && *r.VerificationResult {
			outcome = "successfully"
		}
		return fmt.Sprintf("Verified %s %s", preview, outcome)
	case model.ActionRevoked:
		return "Revoked credential: " + prefix(r.CredentialID, 8) + "..."
	case model.ActionViewed:
		return "Viewed credential: " + prefix(r.CredentialID, 8) + "..."
	case model.ActionWelcome:
		if r.Notes != "" {
			return r.Notes
		}
		return WelcomeMessage
	}
	if r.Notes != "" {
		return r.Notes
	}
	return "Activity occurred"
}

// recipientLabel shows the local part of an email, or the first six
// characters of anything else.
func recipientLabel(id string) string {
	if at := strings.Index(id, "@"); at >= 0 {
		return id[:at]
	}
	return prefix(id, 6) + "..."
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// Entry is one feed line. At holds the absolute time the relative label is
// recomputed from; Fixed overrides the label for entries that have no time.
type Entry struct {
	Action  model.ActionType `json:"action"`
	Message string           `json:"message"`
	At      time.Time        `json:"at"`
	Fixed   string           `json:"-"`
	When    string           `json:"when"`
}

func (e Entry) render(now time.Time) Entry {
	switch {
	case e.Fixed != "":
		e.When = e.Fixed
	case e.At.IsZero():
		e.When = Recently
	default:
		e.When = RelativeTime(now, e.At)
	}
	return e
}

// Format turns backend records into entries labelled against now.
func Format(records []model.ActivityRecord, now time.Time) []Entry {
	out := make([]Entry, 0, len(records))
	for _, r := range records {
		out = append(out, Entry{Action: r.Action, Message: Describe(r), At: r.PerformedAt}.render(now))
	}
	return out
}

// Fallback synthesizes a feed from the credential cache: a welcome line, and
// one summary line per non-empty partition dated by its newest credential.
func Fallback(snap cache.Snapshot, now time.Time) []Entry {
	out := []Entry{{Action: model.ActionWelcome, Message: WelcomeMessage, Fixed: JustNow}}
	if n := len(snap.Issued); n > 0 {
		out = append(out, Entry{
			Action:  model.ActionIssued,
			Message: fmt.Sprintf("You have issued %d %s", n, plural(n, "credential")),
			At:      newest(snap.Issued),
		})
	}
	if n := len(snap.Owned); n > 0 {
		out = append(out, Entry{
			Action:  model.ActionOwned,
			Message: fmt.Sprintf("You own %d %s", n, plural(n, "credential")),
			At:      newest(snap.Owned),
		})
	}
	return Render(out, now)
}

// Render recomputes every label from the stored absolute times.
func Render(entries []Entry, now time.Time) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = e.render(now)
	}
	return out
}

func newest(creds []model.Credential) time.Time {
	var latest time.Time
	for _, c := range creds {
		if c.IssuedAt.After(latest) {
			latest = c.IssuedAt
		}
	}
	return latest
}
