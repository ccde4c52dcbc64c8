package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
)

// Manager はメール送信依頼のキュー投入とワーカー処理を担います。
// 投入失敗・配送失敗はログにのみ現れ、呼び出し元の処理を失敗させません。
type Manager struct {
	client *asynq.Client
	server *asynq.Server
	mux    *asynq.ServeMux
	sender Sender
	logger *log.Logger
}

// NewManager は Manager を初期化します。
func NewManager(redisURL string, sender Sender, logger *log.Logger) (*Manager, error) {
	if sender == nil {
		return nil, errors.New("sender is nil")
	}
	if logger == nil {
		logger = log.Default()
	}
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := asynq.NewClient(opt)
	server := asynq.NewServer(
		opt,
		asynq.Config{
			Concurrency: 2,
			Queues: map[string]int{
				"mail": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	manager := &Manager{
		client: client,
		server: server,
		mux:    mux,
		sender: sender,
		logger: logger,
	}
	mux.HandleFunc(taskTypeMail, manager.handleMailTask)
	return manager, nil
}

// StartWorkers は Asynq サーバーをバックグラウンドで起動します。
func (m *Manager) StartWorkers() {
	go func() {
		if err := m.server.Run(m.mux); err != nil && err != asynq.ErrServerClosed {
			m.logger.Printf("asynq server stopped with error: %v", err)
		}
	}()
}

// Shutdown はサーバーとクライアントを閉じます。
func (m *Manager) Shutdown(ctx context.Context) error {
	m.server.Shutdown()
	m.client.Close()
	return nil
}

// SendWelcome は登録歓迎メールの送信を依頼します。
func (m *Manager) SendWelcome(ctx context.Context, email, name string) {
	m.enqueue(ctx, &Message{To: email, Name: name, Template: TemplateWelcome})
}

// SendFarewell は退会時のお別れメールの送信を依頼します。
func (m *Manager) SendFarewell(ctx context.Context, email, name string) {
	m.enqueue(ctx, &Message{To: email, Name: name, Template: TemplateFarewell})
}

// enqueue はメール送信依頼をキューへ投入します。
// 投入に失敗してもログに残すだけで、エラーは呼び出し元へ返しません。
func (m *Manager) enqueue(ctx context.Context, msg *Message) {
	body, err := json.Marshal(msg)
	if err != nil {
		m.logger.Printf("failed to marshal mail payload to=%s: %v", msg.To, err)
		return
	}

	task := asynq.NewTask(taskTypeMail, body, asynq.Queue("mail"))
	if _, err := m.client.EnqueueContext(ctx, task, asynq.MaxRetry(1)); err != nil {
		m.logger.Printf("failed to enqueue mail to=%s template=%s: %v", msg.To, msg.Template, err)
	}
}

func (m *Manager) handleMailTask(ctx context.Context, task *asynq.Task) error {
	var msg Message
	if err := json.Unmarshal(task.Payload(), &msg); err != nil {
		return err
	}

	subject, body, err := render(&msg)
	if err != nil {
		m.logger.Printf("invalid mail payload: %v", err)
		return err
	}

	if err := m.sender.Send(msg.To, subject, body); err != nil {
		m.logger.Printf("failed to send mail to=%s template=%s: %v", msg.To, msg.Template, err)
		return err
	}
	return nil
}
