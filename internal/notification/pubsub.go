package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// gmailNotification is the payload Gmail publishes on mailbox changes
type gmailNotification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

// PubSubListener subscribes to Gmail push notifications and wakes the
// scheduler so new mail is processed without waiting for the next tick.
// Notifications carry no email content; the pipeline always refetches.
type PubSubListener struct {
	client    *pubsub.Client
	topicName string
	subName   string
	wake      func()

	// Gmail republishes the same historyId on redelivery; track the highest
	// seen to avoid waking the scheduler twice for one change.
	mu            sync.Mutex
	lastHistoryID uint64
}

func NewPubSubListener(projectID, topicName, credentialsFile string, wake func()) (*PubSubListener, error) {
	ctx := context.Background()

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %v", err)
	}

	return &PubSubListener{
		client:    client,
		topicName: topicName,
		subName:   topicName + "-sub",
		wake:      wake,
	}, nil
}

// Start blocks receiving messages until the context is cancelled.
// Run it on its own goroutine.
func (l *PubSubListener) Start(ctx context.Context) {
	log.Printf("[PubSub] Listening on topic %s, subscription %s", l.topicName, l.subName)

	sub := l.client.Subscription(l.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		log.Printf("[PubSub] Error checking subscription existence: %v", err)
		return
	}

	if !exists {
		topic := l.client.Topic(l.topicName)
		topicExists, err := topic.Exists(ctx)
		if err != nil {
			log.Printf("[PubSub] Error checking topic existence: %v", err)
			return
		}
		if !topicExists {
			log.Printf("[PubSub] Topic %s does not exist, push wake-up disabled", l.topicName)
			return
		}

		sub, err = l.client.CreateSubscription(ctx, l.subName, pubsub.SubscriptionConfig{
			Topic:       topic,
			AckDeadline: 10 * time.Second,
		})
		if err != nil {
			log.Printf("[PubSub] Failed to create subscription: %v", err)
			return
		}
		log.Printf("[PubSub] Created subscription: %s", l.subName)
	}

	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		l.handleMessage(msg)
		msg.Ack()
	})
	if err != nil {
		log.Printf("[PubSub] Receive stopped: %v", err)
	}
}

func (l *PubSubListener) handleMessage(msg *pubsub.Message) {
	var n gmailNotification
	if err := json.Unmarshal(msg.Data, &n); err != nil {
		log.Printf("[PubSub] Failed to unmarshal notification: %v", err)
		return
	}

	l.mu.Lock()
	if n.HistoryID <= l.lastHistoryID {
		l.mu.Unlock()
		log.Printf("[PubSub] Skipping duplicate notification (historyId %d <= last %d)", n.HistoryID, l.lastHistoryID)
		return
	}
	l.lastHistoryID = n.HistoryID
	l.mu.Unlock()

	log.Printf("[PubSub] Mailbox change for %s (historyId: %d), waking scheduler", n.EmailAddress, n.HistoryID)
	l.wake()
}

// Close releases the pubsub client
func (l *PubSubListener) Close() error {
	return l.client.Close()
}
