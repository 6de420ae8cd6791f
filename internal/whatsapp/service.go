package whatsapp

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types/events"

	"wedding-planner/internal/models"
)

type Config struct {
	DataDir string
}

// Service shares wedding codes over a linked WhatsApp account
type Service struct {
	client *whatsmeow.Client
	cfg    *Config
	log    zerolog.Logger
}

// NewService opens the device store under cfg.DataDir
func NewService(ctx context.Context, cfg *Config, log zerolog.Logger) (*Service, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	// Use nil logger - sqlstore will use a no-op logger by default
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on", filepath.Join(cfg.DataDir, "whatsmeow.db"))
	container, err := sqlstore.New(ctx, "sqlite3", dsn, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	client := whatsmeow.NewClient(deviceStore, nil)

	service := &Service{
		client: client,
		cfg:    cfg,
		log:    log.With().Str("component", "whatsapp").Logger(),
	}
	client.AddEventHandler(service.eventHandler)

	return service, nil
}

// NormalizePhoneNumber normalizes phone numbers to international format
// Handles Israeli numbers that start with 0 by converting to +972 format
func NormalizePhoneNumber(phoneNumber string) string {
	phoneNumber = strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phoneNumber)

	// 05XXXXXXXX -> 9725XXXXXXXX
	if strings.HasPrefix(phoneNumber, "0") && len(phoneNumber) == 10 {
		phoneNumber = "972" + phoneNumber[1:]
	}
	if strings.HasPrefix(phoneNumber, "9720") {
		phoneNumber = "972" + phoneNumber[4:]
	}

	return phoneNumber
}

// ShareText is the message sent for a wedding code
func ShareText(w models.Wedding, summary string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "💍 *Wedding guest list*\n\n")
	fmt.Fprintf(&b, "Code: *%s*\n", w.Code)
	if !w.ExpiresAt.IsZero() {
		fmt.Fprintf(&b, "Valid until: %s\n", w.ExpiresAt.Format("02.01.2006"))
	}
	if summary != "" {
		fmt.Fprintf(&b, "\n%s\n", summary)
	}
	b.WriteString("\nEnter this code in the planner to open the list.")
	return b.String()
}

// Connect connects to WhatsApp. Unpaired devices print a pairing QR code to qrOut.
func (s *Service) Connect(ctx context.Context, qrOut io.Writer) error {
	if s.client.Store.ID != nil {
		if err := s.client.Connect(); err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		return nil
	}

	qrChan, err := s.client.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("failed to get QR channel: %w", err)
	}
	if err := s.client.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	for evt := range qrChan {
		if evt.Event != "code" {
			s.log.Info().Str("event", evt.Event).Msg("Login event")
			continue
		}
		q, err := qrcode.New(evt.Code, qrcode.Medium)
		if err != nil {
			fmt.Fprintf(qrOut, "QR Code: %s\n", evt.Code)
			continue
		}
		fmt.Fprintln(qrOut, "\n"+q.ToSmallString(false))
		fmt.Fprintln(qrOut, "📱 Scan the QR code above in WhatsApp > Settings > Linked Devices")
	}
	return nil
}

// Disconnect disconnects from WhatsApp
func (s *Service) Disconnect() {
	s.client.Disconnect()
}

// ShareWedding sends the code of w to phone
func (s *Service) ShareWedding(ctx context.Context, phone string, w models.Wedding, summary string) error {
	if !s.client.IsConnected() {
		return fmt.Errorf("whatsapp is not connected")
	}
	phone = NormalizePhoneNumber(phone)

	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	resp, err := s.client.IsOnWhatsApp(ctx, []string{"+" + phone})
	if err != nil {
		return fmt.Errorf("failed to verify number on WhatsApp: %w", err)
	}
	if len(resp) == 0 || !resp[0].IsIn {
		return fmt.Errorf("number %s is not registered on WhatsApp", phone)
	}
	jid := resp[0].JID

	text := ShareText(w, summary)
	s.log.Debug().Str("jid", jid.String()).Str("code", w.Code).Msg("Sending code")

	sent, err := s.client.SendMessage(ctx, jid, &waE2E.Message{
		Conversation: &text,
	})
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	s.log.Info().Str("id", sent.ID).Str("code", w.Code).Msg("Code shared")
	return nil
}

func (s *Service) eventHandler(evt interface{}) {
	switch evt.(type) {
	case *events.Connected:
		s.log.Info().Msg("Connected to WhatsApp")
	case *events.Disconnected:
		s.log.Info().Msg("Disconnected from WhatsApp")
	case *events.LoggedOut:
		s.log.Warn().Msg("Logged out from WhatsApp")
	}
}
