package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"mailagent/internal/agent/domain"
)

// Service is the Gmail transport for the single operator mailbox.
// Tokens come from the environment; a refreshed access token is logged so the
// operator can persist it.
type Service struct {
	clientID     string
	clientSecret string
	accessToken  string
	refreshToken string
}

type notifyTokenSource struct {
	src     oauth2.TokenSource
	current *oauth2.Token
}

func (s *notifyTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if s.current.AccessToken != t.AccessToken {
		s.current = t
		log.Printf("[Gmail] Access token refreshed, expires %s", t.Expiry.Format(time.RFC3339))
	}
	return t, nil
}

func NewService(clientID, clientSecret, accessToken, refreshToken string) *Service {
	return &Service{
		clientID:     clientID,
		clientSecret: clientSecret,
		accessToken:  accessToken,
		refreshToken: refreshToken,
	}
}

// getGmailService creates a Gmail API client for the operator account
func (s *Service) getGmailService(ctx context.Context) (*gmail.Service, error) {
	token := &oauth2.Token{
		AccessToken:  s.accessToken,
		RefreshToken: s.refreshToken,
		TokenType:    "Bearer",
	}

	// Force a refresh when we can, the stored access token may be stale
	if s.refreshToken != "" {
		token.Expiry = time.Now()
	}

	config := &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		Endpoint:     google.Endpoint,
	}

	wrappedSource := &notifyTokenSource{
		src:     config.TokenSource(ctx, token),
		current: token,
	}

	client := oauth2.NewClient(ctx, wrappedSource)

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %v", err)
	}
	return srv, nil
}

// FetchUnread returns up to max unread inbox messages, oldest first so the
// earliest copy of a duplicate chain is indexed before the later ones.
func (s *Service) FetchUnread(ctx context.Context, max int) ([]*domain.EmailRecord, error) {
	srv, err := s.getGmailService(ctx)
	if err != nil {
		return nil, err
	}

	if max <= 0 {
		max = 50
	}

	listResp, err := srv.Users.Messages.List("me").
		Q("is:unread in:inbox").
		MaxResults(int64(max)).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to list unread messages: %v", err)
	}

	type fetchResult struct {
		rec *domain.EmailRecord
		err error
	}

	resultChan := make(chan fetchResult, len(listResp.Messages))
	semaphore := make(chan struct{}, 10)

	for _, msg := range listResp.Messages {
		go func(msgID string) {
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			fullMsg, err := srv.Users.Messages.Get("me", msgID).Format("full").Do()
			if err != nil {
				resultChan <- fetchResult{nil, err}
				return
			}
			resultChan <- fetchResult{convertMessage(fullMsg), nil}
		}(msg.Id)
	}

	records := make([]*domain.EmailRecord, 0, len(listResp.Messages))
	for range listResp.Messages {
		result := <-resultChan
		if result.err != nil {
			log.Printf("[Gmail] Failed to fetch message: %v", result.err)
			continue
		}
		records = append(records, result.rec)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date)
	})

	return records, nil
}

// SendReply sends a plain-text reply, optionally with one attachment
func (s *Service) SendReply(ctx context.Context, to, subject, body, attachmentPath string) error {
	srv, err := s.getGmailService(ctx)
	if err != nil {
		return err
	}

	var emailMsg bytes.Buffer
	boundary := "mail_agent_boundary"

	emailMsg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	encodedSubject := fmt.Sprintf("=?utf-8?B?%s?=", base64.StdEncoding.EncodeToString([]byte(subject)))
	emailMsg.WriteString(fmt.Sprintf("Subject: %s\r\n", encodedSubject))
	emailMsg.WriteString("MIME-Version: 1.0\r\n")
	emailMsg.WriteString(fmt.Sprintf("Content-Type: multipart/mixed; boundary=\"%s\"\r\n\r\n", boundary))

	emailMsg.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	emailMsg.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	emailMsg.WriteString(body)
	emailMsg.WriteString("\r\n")

	if attachmentPath != "" {
		content, err := os.ReadFile(attachmentPath)
		if err != nil {
			return fmt.Errorf("unable to read attachment: %v", err)
		}

		filename := filepath.Base(attachmentPath)
		contentType := mime.TypeByExtension(filepath.Ext(filename))
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		encodedContent := base64.StdEncoding.EncodeToString(content)

		emailMsg.WriteString(fmt.Sprintf("--%s\r\n", boundary))
		emailMsg.WriteString(fmt.Sprintf("Content-Type: %s; name=\"%s\"\r\n", contentType, filename))
		emailMsg.WriteString("Content-Transfer-Encoding: base64\r\n")
		emailMsg.WriteString(fmt.Sprintf("Content-Disposition: attachment; filename=\"%s\"\r\n\r\n", filename))

		for i := 0; i < len(encodedContent); i += 76 {
			end := i + 76
			if end > len(encodedContent) {
				end = len(encodedContent)
			}
			emailMsg.WriteString(encodedContent[i:end] + "\r\n")
		}
	}

	emailMsg.WriteString(fmt.Sprintf("--%s--", boundary))

	msg := &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(emailMsg.Bytes()),
	}

	_, err = srv.Users.Messages.Send("me", msg).Do()
	if err != nil {
		return fmt.Errorf("unable to send message: %v", err)
	}
	return nil
}

// MarkAsRead removes the UNREAD label from a message
func (s *Service) MarkAsRead(ctx context.Context, emailID string) error {
	srv, err := s.getGmailService(ctx)
	if err != nil {
		return err
	}

	modifyReq := &gmail.ModifyMessageRequest{
		RemoveLabelIds: []string{"UNREAD"},
	}

	_, err = srv.Users.Messages.Modify("me", emailID, modifyReq).Do()
	if err != nil {
		return fmt.Errorf("unable to mark message as read: %v", err)
	}
	return nil
}

// Watch registers the mailbox for push notifications on the Pub/Sub topic.
// Gmail allows one watch per mailbox, so any existing watch is stopped first.
func (s *Service) Watch(ctx context.Context, topicName string) error {
	srv, err := s.getGmailService(ctx)
	if err != nil {
		return err
	}

	_ = srv.Users.Stop("me").Do()

	req := &gmail.WatchRequest{
		TopicName: topicName,
		LabelIds:  []string{"INBOX"},
	}

	resp, err := srv.Users.Watch("me", req).Do()
	if err != nil {
		return fmt.Errorf("unable to watch mailbox: %v", err)
	}
	log.Printf("[Gmail] Watch started, expiration %d, historyId %d", resp.Expiration, resp.HistoryId)
	return nil
}

// StopWatch stops push notifications for the mailbox
func (s *Service) StopWatch(ctx context.Context) error {
	srv, err := s.getGmailService(ctx)
	if err != nil {
		return err
	}
	if err := srv.Users.Stop("me").Do(); err != nil {
		return fmt.Errorf("unable to stop mailbox watch: %v", err)
	}
	return nil
}

// Helper functions

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

func convertMessage(msg *gmail.Message) *domain.EmailRecord {
	body, isHTML := getEmailBody(msg.Payload)
	if isHTML {
		body = htmlTagPattern.ReplaceAllString(body, " ")
		body = strings.ReplaceAll(body, "&nbsp;", " ")
		body = strings.ReplaceAll(body, "&lt;", "<")
		body = strings.ReplaceAll(body, "&gt;", ">")
		body = strings.ReplaceAll(body, "&amp;", "&")
		body = strings.ReplaceAll(body, "&quot;", "\"")
		body = strings.Join(strings.Fields(body), " ")
	}

	return &domain.EmailRecord{
		ID:      msg.Id,
		Subject: getHeader(msg.Payload.Headers, "Subject"),
		Sender:  getHeader(msg.Payload.Headers, "From"),
		Body:    body,
		Date:    time.Unix(msg.InternalDate/1000, 0),
		State:   domain.StateUnprocessed,
	}
}

func getHeader(headers []*gmail.MessagePartHeader, name string) string {
	for _, header := range headers {
		if header.Name == name {
			return header.Value
		}
	}
	return ""
}

// getEmailBody walks the MIME tree; plain text wins over HTML because the
// result feeds embedding and classification, not rendering.
func getEmailBody(payload *gmail.MessagePart) (string, bool) {
	if payload.Body != nil && payload.Body.Data != "" {
		data, err := base64.URLEncoding.DecodeString(payload.Body.Data)
		if err == nil {
			return string(data), payload.MimeType == "text/html"
		}
	}

	var htmlBody string
	var plainBody string

	var findBody func(parts []*gmail.MessagePart)
	findBody = func(parts []*gmail.MessagePart) {
		for _, part := range parts {
			if part.MimeType == "text/plain" {
				if part.Body != nil && part.Body.Data != "" {
					data, err := base64.URLEncoding.DecodeString(part.Body.Data)
					if err == nil {
						plainBody = string(data)
					}
				}
			} else if part.MimeType == "text/html" {
				if part.Body != nil && part.Body.Data != "" {
					data, err := base64.URLEncoding.DecodeString(part.Body.Data)
					if err == nil {
						htmlBody = string(data)
					}
				}
			}

			if len(part.Parts) > 0 {
				findBody(part.Parts)
			}
		}
	}

	findBody(payload.Parts)

	if plainBody != "" {
		return plainBody, false
	}
	return htmlBody, true
}
