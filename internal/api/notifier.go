package telegram

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"cv-pipeline/internal/domain/entity"
	"cv-pipeline/internal/domain/port"
)

const (
	msgRunHeader = "🧪 Прогон %s завершён"
	msgRunStats  = `🖼 Изображений: %d
🔎 Вариантов: %s
✅ Успешно: %d
⚪ Без детекций: %d
⚠️ Ошибки детекции: %d
⚠️ Ошибки сегментации: %d
❌ Ошибки сохранения: %d
🎭 Масок: %d`
	msgRunOutput = "📁 Результаты: %s"
)

// Notifier отправляет сводки прогонов в чат Telegram.
// Авторизация выполняется при первой отправке.
type Notifier struct {
	token    string
	endpoint string
	chatID   int64
	log      *zap.Logger

	once    sync.Once
	api     *tgbotapi.BotAPI
	authErr error
}

// NewNotifier создаёт уведомитель через официальный Bot API
func NewNotifier(token string, chatID int64, log *zap.Logger) *Notifier {
	return NewNotifierWithEndpoint(token, tgbotapi.APIEndpoint, chatID, log)
}

// NewNotifierWithEndpoint создаёт уведомитель для произвольного адреса Bot API
func NewNotifierWithEndpoint(token, endpoint string, chatID int64, log *zap.Logger) *Notifier {
	return &Notifier{
		token:    token,
		endpoint: endpoint,
		chatID:   chatID,
		log:      log,
	}
}

// client авторизуется один раз; ошибка авторизации запоминается
func (n *Notifier) client() (*tgbotapi.BotAPI, error) {
	n.once.Do(func() {
		api, err := tgbotapi.NewBotAPIWithAPIEndpoint(n.token, n.endpoint)
		if err != nil {
			n.authErr = fmt.Errorf("telegram auth: %w", err)
			return
		}
		n.log.Info("Authorized on Telegram", zap.String("account", api.Self.UserName))
		n.api = api
	})
	return n.api, n.authErr
}

// NotifyRun отправляет текстовую сводку прогона
func (n *Notifier) NotifyRun(ctx context.Context, m *entity.RunManifest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return n.sendMessage(FormatRun(m))
}

// NotifyImage отправляет картинку с подписью
func (n *Notifier) NotifyImage(ctx context.Context, path, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	api, err := n.client()
	if err != nil {
		return err
	}

	photo := tgbotapi.NewPhoto(n.chatID, tgbotapi.FilePath(path))
	photo.Caption = caption
	if _, err := api.Send(photo); err != nil {
		return fmt.Errorf("send photo %s: %w", filepath.Base(path), err)
	}
	return nil
}

// sendMessage отправляет текстовое сообщение
func (n *Notifier) sendMessage(text string) error {
	api, err := n.client()
	if err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := api.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// FormatRun собирает текст сводки
func FormatRun(m *entity.RunManifest) string {
	var b strings.Builder
	fmt.Fprintf(&b, msgRunHeader, m.RunID)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, msgRunStats,
		len(m.Images),
		strings.Join(m.Variants, ", "),
		m.Count(entity.StatusOK),
		m.Count(entity.StatusNoDetections),
		m.Count(entity.StatusDetectFailed),
		m.Count(entity.StatusSegmentFailed),
		m.Count(entity.StatusSaveFailed),
		m.TotalMasks(),
	)
	if m.OutputDir != "" {
		b.WriteString("\n\n")
		fmt.Fprintf(&b, msgRunOutput, m.OutputDir)
	}
	return b.String()
}

// NopNotifier ничего не отправляет; используется без токена
type NopNotifier struct{}

func (NopNotifier) NotifyRun(context.Context, *entity.RunManifest) error { return nil }
func (NopNotifier) NotifyImage(context.Context, string, string) error    { return nil }

var (
	_ port.Notifier = (*Notifier)(nil)
	_ port.Notifier = NopNotifier{}
)
