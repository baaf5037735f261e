package email

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/nhle/messagelist/internal/model"
)

// flagStatus maps IMAP system flags and common keywords to status bits.
var flagStatus = map[string]model.Status{
	`\seen`:      model.StatusRead,
	`\flagged`:   model.StatusImportant,
	`\answered`:  model.StatusReplied,
	`\deleted`:   model.StatusDeleted,
	`$forwarded`: model.StatusForwarded,
	`$junk`:      model.StatusSpam,
	`$notjunk`:   model.StatusHam,
	`$todo`:      model.StatusToAct,
	`$watched`:   model.StatusWatched,
	`$ignored`:   model.StatusIgnored,
}

// ParseMessage reads an RFC 5322 message, or only its header block, and
// extracts the envelope. Header fields that fail to decode are kept raw or
// left empty; only an unreadable header block is an error.
func ParseMessage(r io.Reader) (Envelope, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Envelope{}, fmt.Errorf("reading message: %w", err)
	}
	size := int64(len(raw))

	if !bytes.Contains(raw, []byte("\n\n")) && !bytes.Contains(raw, []byte("\r\n\r\n")) {
		raw = append(raw, "\r\n\r\n"...)
	}

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return Envelope{}, fmt.Errorf("parsing message header: %w", err)
	}
	defer mr.Close()

	env := envelopeFromHeader(&mr.Header)
	env.Size = size
	env.HasAttachment = hasAttachment(mr)
	return env, nil
}

func envelopeFromHeader(h *mail.Header) Envelope {
	var env Envelope

	id, err := h.MessageID()
	if err != nil {
		id = looseMsgID(h.Get("Message-Id"))
	}
	env.MessageID = id

	ids, err := h.MsgIDList("In-Reply-To")
	switch {
	case len(ids) > 0:
		env.InReplyTo = ids[0]
	case err != nil:
		env.InReplyTo = looseMsgID(h.Get("In-Reply-To"))
	}

	// a malformed tail still leaves the ids parsed before it
	env.References, _ = h.MsgIDList("References")

	subject, err := h.Subject()
	if err != nil {
		subject = h.Get("Subject")
	}
	env.Subject = strings.TrimSpace(subject)

	if from, err := h.AddressList("From"); err == nil && len(from) > 0 {
		env.From = formatAddress(from[0])
	} else {
		env.From = strings.TrimSpace(h.Get("From"))
	}

	if to, err := h.AddressList("To"); err == nil {
		for _, a := range to {
			env.To = append(env.To, a.Address)
		}
	}

	env.Date, _ = h.Date()
	return env
}

// hasAttachment walks the message parts looking for an attachment.
func hasAttachment(mr *mail.Reader) bool {
	for {
		part, err := mr.NextPart()
		if err != nil {
			return false
		}
		if _, ok := part.Header.(*mail.AttachmentHeader); ok {
			return true
		}
	}
}

// looseMsgID salvages an identifier from a malformed message id list: the
// first bracketed token, or the first word.
func looseMsgID(s string) string {
	if i := strings.IndexByte(s, '<'); i >= 0 {
		if j := strings.IndexByte(s[i:], '>'); j > 0 {
			return strings.TrimSpace(s[i+1 : i+j])
		}
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.Trim(fields[0], "<>")
}

func formatAddress(a *mail.Address) string {
	if a.Name != "" {
		return a.Name
	}
	return a.Address
}

// StatusFromFlags converts IMAP flags to status bits. Unknown flags are
// ignored.
func StatusFromFlags(flags []string) model.Status {
	var s model.Status
	for _, f := range flags {
		s |= flagStatus[strings.ToLower(f)]
	}
	return s
}

// Record converts the envelope to a storage record for folder.
func (e Envelope) Record(folder string) model.MessageRecord {
	status := StatusFromFlags(e.Flags)
	if e.HasAttachment {
		status |= model.StatusHasAttachment
	}
	var receiver string
	if len(e.To) > 0 {
		receiver = e.To[0]
	}
	return model.MessageRecord{
		Folder:     folder,
		MessageID:  e.MessageID,
		InReplyTo:  e.InReplyTo,
		References: e.References,
		Subject:    e.Subject,
		Sender:     e.From,
		Receiver:   receiver,
		Date:       e.Date.UTC(),
		Size:       e.Size,
		Status:     status,
	}
}
