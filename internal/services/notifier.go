package services

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"knowledgehub/internal/config"
	"knowledgehub/internal/models"
)

// NewAnswer is the payload delivered to followers.
type NewAnswer struct {
	PostID       uint
	PostTitle    string
	CommentID    uint
	AnswererID   uint
	AnswererName string
	Summary      string
}

type Recipient struct {
	UserID   uint
	Username string
	Email    string
}

// FollowerStore lists who should hear about a new answer.
type FollowerStore interface {
	Followers(ctx context.Context, postID, excludeUserID uint) ([]Recipient, error)
}

// Sink delivers one notification to a batch of recipients.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, recipients []Recipient, answer NewAnswer) error
}

// Notifier fans new-answer notifications out to every sink. It is best
// effort: failures are logged and never reach the caller.
type Notifier struct {
	store   FollowerStore
	sinks   []Sink
	logger  *zap.Logger
	timeout time.Duration
	workers int

	wg sync.WaitGroup
}

func NewNotifier(store FollowerStore, logger *zap.Logger, sinks ...Sink) *Notifier {
	return &Notifier{
		store:   store,
		sinks:   sinks,
		logger:  logger.Named("notifier"),
		timeout: 30 * time.Second,
		workers: 4,
	}
}

// NotifyFollowers returns immediately; delivery happens in the background.
func (n *Notifier) NotifyFollowers(postID uint, answer NewAnswer) {
	answer.PostID = postID
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				n.logger.Error("Notification fan-out panicked", zap.Uint("post_id", postID), zap.Any("panic", r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		n.deliver(ctx, answer)
	}()
}

// Wait blocks until every in-flight fan-out has finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) deliver(ctx context.Context, answer NewAnswer) {
	recipients, err := n.store.Followers(ctx, answer.PostID, answer.AnswererID)
	if err != nil {
		n.logger.Warn("Failed to load followers", zap.Uint("post_id", answer.PostID), zap.Error(err))
		return
	}
	if len(recipients) == 0 {
		return
	}

	p := pool.New().WithContext(ctx).WithMaxGoroutines(n.workers)
	for _, sink := range n.sinks {
		p.Go(func(ctx context.Context) error {
			if err := sink.Deliver(ctx, recipients, answer); err != nil {
				n.logger.Warn("Notification sink failed",
					zap.String("sink", sink.Name()),
					zap.Uint("post_id", answer.PostID),
					zap.Int("recipients", len(recipients)),
					zap.Error(err))
				return err
			}
			return nil
		})
	}
	if err := p.Wait(); err == nil {
		n.logger.Debug("Followers notified", zap.Uint("post_id", answer.PostID), zap.Int("recipients", len(recipients)))
	}
}

// DBSink writes inbox rows.
type DBSink struct {
	db *gorm.DB
}

func NewDBSink(db *gorm.DB) *DBSink {
	return &DBSink{db: db}
}

func (s *DBSink) Name() string { return "db" }

func (s *DBSink) Deliver(ctx context.Context, recipients []Recipient, answer NewAnswer) error {
	rows := make([]models.Notification, 0, len(recipients))
	for _, r := range recipients {
		actorID, postID, commentID := answer.AnswererID, answer.PostID, answer.CommentID
		rows = append(rows, models.Notification{
			UserID:    r.UserID,
			ActorID:   &actorID,
			Type:      models.NotificationTypeNewAnswer,
			PostID:    &postID,
			CommentID: &commentID,
			Reason:    answerReason(answer),
		})
	}
	return s.db.WithContext(ctx).CreateInBatches(rows, 100).Error
}

func answerReason(a NewAnswer) string {
	if a.Summary == "" {
		return fmt.Sprintf("%s answered %q", a.AnswererName, a.PostTitle)
	}
	return fmt.Sprintf("%s answered %q: %s", a.AnswererName, a.PostTitle, a.Summary)
}

// MailSink sends a plain text email per recipient.
type MailSink struct {
	cfg     config.SMTP
	siteURL string
	send    func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewMailSink returns nil when SMTP is not fully configured.
func NewMailSink(cfg config.SMTP, siteURL string) *MailSink {
	if !cfg.Enabled() {
		return nil
	}
	return &MailSink{cfg: cfg, siteURL: strings.TrimRight(siteURL, "/"), send: smtp.SendMail}
}

func (s *MailSink) Name() string { return "mail" }

func (s *MailSink) Deliver(ctx context.Context, recipients []Recipient, answer NewAnswer) error {
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)
	subject := fmt.Sprintf("New answer on %q", answer.PostTitle)
	link := fmt.Sprintf("%s/posts/%d#answer-%d", s.siteURL, answer.PostID, answer.CommentID)

	var failed int
	for _, r := range recipients {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.Email == "" {
			continue
		}
		body := fmt.Sprintf("Hi %s,\r\n\r\n%s\r\n\r\n%s\r\n", r.Username, answerReason(answer), link)
		msg := []byte(fmt.Sprintf("To: %s\r\nFrom: Knowledge Hub <%s>\r\nSubject: %s\r\n"+
			"MIME-version: 1.0\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n%s",
			r.Email, s.cfg.From, subject, body))
		if err := s.send(addr, auth, s.cfg.From, []string{r.Email}, msg); err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("failed to send %d of %d emails", failed, len(recipients))
	}
	return nil
}
