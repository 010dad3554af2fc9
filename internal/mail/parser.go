package mail

import (
	"bytes"
	"io"
	"regexp"
	"strings"

	"github.com/emersion/go-message/mail"

	"github.com/nhle/mail-triage/internal/model"
)

// SnippetMaxChars caps the body snippet length to control token cost.
const SnippetMaxChars = 500

const noSubject = "(no subject)"

// ParseMessage parses raw RFC 5322 message bytes into a MessageSummary.
// Malformed input yields a best-effort partial summary rather than an
// error; a batch never fails because one message would not parse.
func ParseMessage(uid uint32, raw []byte) model.MessageSummary {
	summary := model.MessageSummary{
		UID:     uid,
		Subject: noSubject,
	}

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return summary
	}
	defer mr.Close()

	if subject, err := mr.Header.Subject(); err == nil && subject != "" {
		summary.Subject = subject
	}
	if from, err := mr.Header.Text("From"); err == nil {
		summary.Sender = from
	} else {
		summary.Sender = mr.Header.Get("From")
	}
	if id, err := mr.Header.MessageID(); err == nil {
		summary.MessageID = id
	}
	// Unparseable Date headers leave the timestamp absent.
	if date, err := mr.Header.Date(); err == nil {
		summary.Date = date
	}

	contentType, _, _ := mr.Header.ContentType()
	multipart := strings.HasPrefix(contentType, "multipart/")

	var plainBody, htmlBody string
	attachments := 0

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			partType, _, _ := h.ContentType()
			body, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}
			switch {
			case strings.HasPrefix(partType, "text/plain") && plainBody == "":
				plainBody = string(body)
			case strings.HasPrefix(partType, "text/html") && htmlBody == "":
				htmlBody = string(body)
			}
		case *mail.AttachmentHeader:
			attachments++
			// Attachment content is irrelevant for triage; drain and move on.
			_, _ = io.Copy(io.Discard, part.Body)
		}
	}

	summary.HasAttachments = multipart && attachments > 0

	switch {
	case plainBody != "":
		summary.Snippet = shorten(plainBody, SnippetMaxChars)
	case htmlBody != "":
		summary.Snippet = shorten(stripHTML(htmlBody), SnippetMaxChars)
	}

	return summary
}

var (
	stylePattern  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	scriptPattern = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	tagPattern    = regexp.MustCompile(`<[^>]+>`)

	entityReplacer = strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
	)
)

// stripHTML produces a plain-text rendering of an HTML body. Style and
// script block contents are removed entirely before tags are stripped, so
// CSS and JS text never leaks into the snippet.
func stripHTML(html string) string {
	text := stylePattern.ReplaceAllString(html, "")
	text = scriptPattern.ReplaceAllString(text, "")
	text = tagPattern.ReplaceAllString(text, " ")
	text = entityReplacer.Replace(text)
	return strings.Join(strings.Fields(text), " ")
}

// shorten collapses runs of whitespace and truncates s to at most max
// characters, breaking at a word boundary with a "..." marker where
// feasible.
func shorten(s string, max int) string {
	words := strings.Fields(s)
	collapsed := strings.Join(words, " ")
	if len(collapsed) <= max {
		return collapsed
	}

	const marker = "..."
	out := ""
	for _, w := range words {
		candidate := w
		if out != "" {
			candidate = out + " " + w
		}
		if len(candidate)+len(marker) > max {
			break
		}
		out = candidate
	}
	if out == "" {
		// Single word longer than the budget; hard cut.
		return collapsed[:max-len(marker)] + marker
	}
	return out + marker
}
