package imap

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"mime"
	"net/smtp"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"

	"mailagent/internal/agent/domain"
)

// Service is the IMAP/SMTP transport for non-Gmail mailboxes. Each operation
// dials a fresh IMAP connection; the agent polls on a multi-minute interval
// so keeping a session alive buys nothing.
type Service struct {
	imapAddr string
	smtpHost string
	smtpPort string
	username string
	password string
	from     string
}

func NewService(imapAddr, smtpHost, smtpPort, username, password, from string) *Service {
	if from == "" {
		from = username
	}
	return &Service{
		imapAddr: imapAddr,
		smtpHost: smtpHost,
		smtpPort: smtpPort,
		username: username,
		password: password,
		from:     from,
	}
}

func (s *Service) connect() (*client.Client, error) {
	c, err := client.DialTLS(s.imapAddr, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to dial IMAP server: %v", err)
	}
	if err := c.Login(s.username, s.password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("IMAP login failed: %v", err)
	}
	return c, nil
}

// FetchUnread returns up to max unseen inbox messages, oldest first.
// Record ids are IMAP UIDs, stable for the lifetime of the mailbox.
func (s *Service) FetchUnread(ctx context.Context, max int) ([]*domain.EmailRecord, error) {
	c, err := s.connect()
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	if _, err := c.Select("INBOX", false); err != nil {
		return nil, fmt.Errorf("unable to select INBOX: %v", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("unable to search unseen messages: %v", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}

	// UIDs ascend with arrival order; keep the oldest ones
	if max > 0 && len(uids) > max {
		uids = uids[:max]
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	// Peek so fetching does not set \Seen; only a dispatched action does
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{section.FetchItem(), imap.FetchUid, imap.FetchInternalDate}

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqset, items, messages)
	}()

	var records []*domain.EmailRecord
	for msg := range messages {
		rec, err := convertMessage(msg, section)
		if err != nil {
			log.Printf("[IMAP] Failed to parse message %d: %v", msg.Uid, err)
			continue
		}
		records = append(records, rec)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("unable to fetch messages: %v", err)
	}
	return records, nil
}

// SendReply sends a plain-text reply over SMTP, optionally with one attachment
func (s *Service) SendReply(ctx context.Context, to, subject, body, attachmentPath string) error {
	msg, err := buildMIMEMessage(s.from, to, subject, body, attachmentPath)
	if err != nil {
		return err
	}

	addr := s.smtpHost + ":" + s.smtpPort
	auth := smtp.PlainAuth("", s.username, s.password, s.smtpHost)
	if err := smtp.SendMail(addr, auth, s.from, []string{to}, msg); err != nil {
		return fmt.Errorf("unable to send message: %v", err)
	}
	return nil
}

// MarkAsRead sets the \Seen flag on the message
func (s *Service) MarkAsRead(ctx context.Context, emailID string) error {
	uid, err := strconv.ParseUint(emailID, 10, 32)
	if err != nil {
		return fmt.Errorf("invalid IMAP uid %q: %v", emailID, err)
	}

	c, err := s.connect()
	if err != nil {
		return err
	}
	defer c.Logout()

	if _, err := c.Select("INBOX", false); err != nil {
		return fmt.Errorf("unable to select INBOX: %v", err)
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uint32(uid))

	item := imap.FormatFlagsOp(imap.AddFlags, true)
	flags := []interface{}{imap.SeenFlag}
	if err := c.UidStore(seqset, item, flags, nil); err != nil {
		return fmt.Errorf("unable to mark message as read: %v", err)
	}
	return nil
}

func convertMessage(msg *imap.Message, section *imap.BodySectionName) (*domain.EmailRecord, error) {
	r := msg.GetBody(section)
	if r == nil {
		return nil, fmt.Errorf("server returned no body")
	}

	mr, err := mail.CreateReader(r)
	if err != nil {
		return nil, fmt.Errorf("unable to create mail reader: %v", err)
	}

	header := mr.Header
	subject, _ := header.Subject()
	from := ""
	if addrs, err := header.AddressList("From"); err == nil && len(addrs) > 0 {
		from = addrs[0].String()
	}

	var body string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("[IMAP] Skipping malformed part: %v", err)
			break
		}

		if _, ok := p.Header.(*mail.InlineHeader); ok {
			b, err := io.ReadAll(p.Body)
			if err != nil {
				continue
			}
			// First inline part wins, multipart/alternative puts plain first
			if body == "" {
				body = string(b)
			}
		}
	}

	return &domain.EmailRecord{
		ID:      strconv.FormatUint(uint64(msg.Uid), 10),
		Subject: subject,
		Sender:  from,
		Body:    strings.TrimSpace(body),
		Date:    msg.InternalDate,
		State:   domain.StateUnprocessed,
	}, nil
}

func buildMIMEMessage(from, to, subject, body, attachmentPath string) ([]byte, error) {
	var msg bytes.Buffer
	boundary := "mail_agent_boundary"

	msg.WriteString(fmt.Sprintf("From: %s\r\n", from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	encodedSubject := fmt.Sprintf("=?utf-8?B?%s?=", base64.StdEncoding.EncodeToString([]byte(subject)))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", encodedSubject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString(fmt.Sprintf("Content-Type: multipart/mixed; boundary=\"%s\"\r\n\r\n", boundary))

	msg.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	msg.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	msg.WriteString(body)
	msg.WriteString("\r\n")

	if attachmentPath != "" {
		content, err := os.ReadFile(attachmentPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read attachment: %v", err)
		}

		filename := filepath.Base(attachmentPath)
		contentType := mime.TypeByExtension(filepath.Ext(filename))
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		encodedContent := base64.StdEncoding.EncodeToString(content)

		msg.WriteString(fmt.Sprintf("--%s\r\n", boundary))
		msg.WriteString(fmt.Sprintf("Content-Type: %s; name=\"%s\"\r\n", contentType, filename))
		msg.WriteString("Content-Transfer-Encoding: base64\r\n")
		msg.WriteString(fmt.Sprintf("Content-Disposition: attachment; filename=\"%s\"\r\n\r\n", filename))

		for i := 0; i < len(encodedContent); i += 76 {
			end := i + 76
			if end > len(encodedContent) {
				end = len(encodedContent)
			}
			msg.WriteString(encodedContent[i:end] + "\r\n")
		}
	}

	msg.WriteString(fmt.Sprintf("--%s--", boundary))
	return msg.Bytes(), nil
}
