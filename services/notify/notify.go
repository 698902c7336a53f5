package notifysvc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/mail"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/attendance/core"
)

const publishTimeout = 5 * time.Second

var nowFunc = time.Now // mockable

func absentText(studentName, className string) string {
	return fmt.Sprintf("%s (%s) absent today", studentName, className)
}

// LogNotifier logs absences.
type LogNotifier struct {
	logger core.Logger
}

var _ core.Notifier = (*LogNotifier)(nil)

func NewLogNotifier(logger core.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyAbsent(_ context.Context, studentName, className string) {
	n.logger.Info("absent: " + absentText(studentName, className))
}

// EmailNotifier mails absences to a fixed list of recipients.
type EmailNotifier struct {
	mailSvc    core.EmailService
	recipients []mail.Address
}

var _ core.Notifier = (*EmailNotifier)(nil)

func NewEmailNotifier(mailSvc core.EmailService, recipients []mail.Address) *EmailNotifier {
	return &EmailNotifier{mailSvc: mailSvc, recipients: recipients}
}

func (n *EmailNotifier) NotifyAbsent(_ context.Context, studentName, className string) {
	if len(n.recipients) == 0 {
		return
	}
	n.mailSvc.SendMessages(&core.EmailMessage{
		To:      n.recipients,
		Subject: "absent",
		BodyStr: absentText(studentName, className),
	})
}

// AbsentEvent is the payload published by RedisNotifier.
type AbsentEvent struct {
	Type    string    `json:"type"`
	Student string    `json:"student"`
	Class   string    `json:"class"`
	At      time.Time `json:"at"`
}

type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisNotifier publishes absences as JSON events on a redis channel.
type RedisNotifier struct {
	client  publisher
	channel string
	logger  core.Logger
	wg      sync.WaitGroup
}

var _ core.Notifier = (*RedisNotifier)(nil)

func NewRedisNotifier(client *redis.Client, channel string, logger core.Logger) *RedisNotifier {
	return &RedisNotifier{client: client, channel: channel, logger: logger}
}

// NewRedisClient connects to redis and checks the connection.
func NewRedisClient(ctx context.Context, conf core.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

func (n *RedisNotifier) NotifyAbsent(ctx context.Context, studentName, className string) {
	payload, err := json.Marshal(AbsentEvent{Type: "absent", Student: studentName, Class: className, At: nowFunc().UTC()})
	if err != nil {
		n.logger.Error("encoding absent event", errors.Wrap(err, "encoding absent event"))
		return
	}

	// the request context ends with the request; keep its values only
	ctx = context.WithoutCancel(ctx)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()
		if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
			n.logger.Error("publishing absent event", errors.Wrap(err, "publishing absent event"))
		}
	}()
}

// Wait blocks until every pending publication is done.
func (n *RedisNotifier) Wait() {
	n.wg.Wait()
}

// Multi fans a notification out to several notifiers.
type Multi []core.Notifier

var _ core.Notifier = (Multi)(nil)

func (m Multi) NotifyAbsent(ctx context.Context, studentName, className string) {
	for _, n := range m {
		n.NotifyAbsent(ctx, studentName, className)
	}
}

// Absence is a notification received by Recorder.
type Absence struct {
	Student string
	Class   string
}

// Recorder keeps notifications in memory; used in tests.
type Recorder struct {
	mu       sync.Mutex
	absences []Absence
}

var _ core.Notifier = (*Recorder)(nil)

func (r *Recorder) NotifyAbsent(_ context.Context, studentName, className string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.absences = append(r.absences, Absence{Student: studentName, Class: className})
}

func (r *Recorder) Absences() []Absence {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Absence(nil), r.absences...)
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.absences = nil
}
