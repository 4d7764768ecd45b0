package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/signintech/gopdf"
	"github.com/sirupsen/logrus"

	"github.com/fived/therapists/internal/analysis"
	"github.com/fived/therapists/internal/questionnaire"
)

// ErrDeliveryNotConfigured is returned by SendReport when no chat is set up.
var ErrDeliveryNotConfigured = errors.New("report delivery is not configured")

// DefaultFontPaths are tried in order; DejaVu covers Portuguese accents.
var DefaultFontPaths = []string{
	"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
}

type TelegramClient interface {
	Configured() bool
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendDocument(ctx context.Context, chatID int64, fileData []byte, fileName, caption string) error
}

type Service struct {
	tgClient  TelegramClient
	chatID    int64
	fontPaths []string
	log       logrus.FieldLogger
}

func NewService(tg TelegramClient, chatID int64, fontPaths []string, log logrus.FieldLogger) *Service {
	if len(fontPaths) == 0 {
		fontPaths = DefaultFontPaths
	}
	return &Service{
		tgClient:  tg,
		chatID:    chatID,
		fontPaths: fontPaths,
		log:       log,
	}
}

// RenderPDF lays out scores and recommendations of rec on one A4 page.
func (s *Service) RenderPDF(rec analysis.Record) ([]byte, error) {
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.SetMargins(40, 40, 40, 40)
	pdf.AddPage()

	if err := s.loadFont(&pdf); err != nil {
		return nil, err
	}

	if err := pdf.SetFont("DejaVu", "", 20); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Relatório de Análise Quântica 5D")
	pdf.Br(30)

	if err := pdf.SetFont("DejaVu", "", 12); err != nil {
		return nil, err
	}
	pdf.Cell(nil, fmt.Sprintf("Data: %s", rec.CreatedAt.Format("02/01/2006 15:04")))
	pdf.Br(15)
	pdf.Cell(nil, fmt.Sprintf("ID do Paciente: %s", rec.PatientID))
	pdf.Br(25)

	if err := pdf.SetFont("DejaVu", "", 14); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Pontuação por dimensão:")
	pdf.Br(20)

	if err := pdf.SetFont("DejaVu", "", 11); err != nil {
		return nil, err
	}
	if !rec.Results.HasCategories() {
		pdf.Cell(nil, "- Sem dados de categorias.")
		pdf.Br(15)
	}
	for _, line := range ScoreLines(rec.Results.Categories) {
		y := pdf.GetY()
		pdf.SetX(40)
		pdf.Cell(nil, line.Text)
		// bar scaled to 300pt at 100%
		pdf.SetFillColor(75, 192, 192)
		pdf.RectFromUpperLeftWithStyle(220, y, 3*line.Score, 10, "F")
		pdf.Br(18)
	}
	pdf.Br(10)

	if err := pdf.SetFont("DejaVu", "", 14); err != nil {
		return nil, err
	}
	pdf.SetX(40)
	pdf.Cell(nil, "Recomendações:")
	pdf.Br(20)

	if err := pdf.SetFont("DejaVu", "", 11); err != nil {
		return nil, err
	}
	for _, r := range rec.Recommendations {
		lines, err := pdf.SplitText("- "+r, 500)
		if err != nil {
			return nil, fmt.Errorf("split recommendation: %w", err)
		}
		for _, l := range lines {
			pdf.SetX(40)
			pdf.Cell(nil, l)
			pdf.Br(14)
		}
		pdf.Br(4)
	}

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *Service) loadFont(pdf *gopdf.GoPdf) error {
	var fontErr error
	for _, path := range s.fontPaths {
		err := pdf.AddTTFFont("DejaVu", path)
		if err == nil {
			return nil
		}
		fontErr = err
	}
	s.log.WithError(fontErr).Error("no usable report font")
	return fmt.Errorf("failed to load font for PDF. Please ensure ttf-dejavu is installed. Last error: %w", fontErr)
}

// SendReport renders rec and posts it to the configured Telegram chat. When
// the PDF cannot be rendered the text summary is sent instead.
func (s *Service) SendReport(ctx context.Context, rec analysis.Record) error {
	if s.tgClient == nil || !s.tgClient.Configured() || s.chatID == 0 {
		return ErrDeliveryNotConfigured
	}
	log := s.log.WithFields(logrus.Fields{"analysis_id": rec.ID, "chat_id": s.chatID})

	data, err := s.RenderPDF(rec)
	if err != nil {
		log.WithError(err).Warn("pdf unavailable, sending text summary")
		if err := s.tgClient.SendMessage(ctx, s.chatID, Summary(rec)); err != nil {
			return fmt.Errorf("send summary: %w", err)
		}
		return nil
	}

	fileName := fmt.Sprintf("analysis_%s.pdf", rec.ID)
	caption := fmt.Sprintf("Análise de %s", rec.CreatedAt.Format("02/01/2006"))
	if err := s.tgClient.SendDocument(ctx, s.chatID, data, fileName, caption); err != nil {
		return fmt.Errorf("send report: %w", err)
	}
	log.Info("report sent")
	return nil
}

// Summary is the plain-text form of a report.
func Summary(rec analysis.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Análise de %s\n", rec.CreatedAt.Format("02/01/2006 15:04"))
	lines := ScoreLines(rec.Results.Categories)
	if len(lines) == 0 {
		b.WriteString("Sem dados de categorias.\n")
	}
	for _, l := range lines {
		b.WriteString(l.Text + "\n")
	}
	if len(rec.Recommendations) > 0 {
		b.WriteString("\nRecomendações:\n")
		for _, r := range rec.Recommendations {
			b.WriteString("- " + r + "\n")
		}
	}
	return b.String()
}

type ScoreLine struct {
	Category questionnaire.Category
	Score    float64
	Text     string
}

// ScoreLines orders scores by category priority, unknown keys last.
func ScoreLines(scores map[questionnaire.Category]float64) []ScoreLine {
	var out []ScoreLine
	for _, cat := range analysis.OrderedCategories(scores) {
		out = append(out, scoreLine(cat, scores[cat]))
	}
	return out
}

func scoreLine(cat questionnaire.Category, v float64) ScoreLine {
	return ScoreLine{Category: cat, Score: v, Text: fmt.Sprintf("%s: %.0f%%", cat.Label(), v)}
}
