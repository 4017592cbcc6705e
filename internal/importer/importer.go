package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"tire-shop/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	unknown         = "Unknown"
	defaultCategory = "uncategorized"
	codePrefix      = "IMPORTED-"
)

var sizePattern = regexp.MustCompile(`(?i)(\d{2,4}/\d{2}\s*R\d{2,3})`)

// Record is one entry of an import file. Price and stock may be numbers or
// numeric strings; id may be a number or a string.
type Record struct {
	ID         json.RawMessage `json:"id"`
	Title      string          `json:"title"`
	Brand      string          `json:"brand"`
	Model      string          `json:"model"`
	Code       string          `json:"code"`
	Size       string          `json:"size"`
	Category   string          `json:"category"`
	Price      lenientNumber   `json:"price"`
	Stock      lenientNumber   `json:"stock"`
	Thumbnails []string        `json:"thumbnails"`
}

// lenientNumber reads anything unparsable as zero.
type lenientNumber float64

func (n *lenientNumber) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		*n = 0
		return nil
	}
	*n = lenientNumber(f)
	return nil
}

// Upserter stores a product by code.
type Upserter interface {
	Upsert(ctx context.Context, input domain.ProductInput) (*domain.Product, bool, error)
}

// Summary counts the outcome of one import run.
type Summary struct {
	Created int
	Updated int
	Failed  int
}

// Importer loads catalog files into the product service.
type Importer struct {
	products Upserter
	logger   *zap.Logger
	newCode  func() string
}

func NewImporter(products Upserter, logger *zap.Logger) *Importer {
	return &Importer{
		products: products,
		logger:   logger,
		newCode: func() string {
			return codePrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:7]
		},
	}
}

// Import reads a JSON array of records and upserts each one. A failing record
// is logged and skipped.
func (im *Importer) Import(ctx context.Context, r io.Reader) (Summary, error) {
	var records []Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return Summary{}, fmt.Errorf("failed to decode import file: %w", err)
	}

	var sum Summary
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		input := ToInput(rec, im.newCode)
		product, created, err := im.products.Upsert(ctx, input)
		if err != nil {
			sum.Failed++
			im.logger.Warn("Failed to import product",
				zap.Int("index", i),
				zap.String("code", input.Code),
				zap.Error(err),
			)
			continue
		}
		if created {
			sum.Created++
		} else {
			sum.Updated++
		}
		im.logger.Debug("Product imported",
			zap.String("code", product.Code),
			zap.String("product_id", product.ID.Hex()),
			zap.Bool("created", created),
		)
	}

	im.logger.Info("Import finished",
		zap.Int("created", sum.Created),
		zap.Int("updated", sum.Updated),
		zap.Int("failed", sum.Failed),
	)
	return sum, nil
}

// ToInput maps a record onto a product input. Brand and model fall back to
// the title split around its tire size; text fields lose their accents.
func ToInput(rec Record, newCode func() string) domain.ProductInput {
	title := strings.TrimSpace(rec.Title)
	sizeFromTitle := sizePattern.FindString(title)

	brand, model := strings.TrimSpace(rec.Brand), strings.TrimSpace(rec.Model)
	if brand == "" || model == "" {
		rest := title
		if sizeFromTitle != "" {
			rest = strings.TrimSpace(strings.Replace(title, sizeFromTitle, "", 1))
		}
		if parts := strings.Fields(rest); len(parts) > 0 {
			if brand == "" {
				brand = parts[0]
			}
			if model == "" {
				model = strings.Join(parts[1:], " ")
				if model == "" {
					model = parts[0]
				}
			}
		}
	}

	size := sizeFromTitle
	if size == "" {
		size = strings.TrimSpace(rec.Size)
	}

	code := strings.TrimSpace(rec.Code)
	if code == "" {
		code = rawID(rec.ID)
	}
	if code == "" {
		code = newCode()
	}

	price := float64(rec.Price)
	if price < 0 {
		price = 0
	}
	stock := int(rec.Stock)
	if stock < 0 {
		stock = 0
	}

	return domain.ProductInput{
		Brand:      orDefault(StripAccents(brand), unknown),
		Model:      orDefault(StripAccents(model), unknown),
		Code:       code,
		Size:       size,
		Category:   orDefault(StripAccents(strings.TrimSpace(rec.Category)), defaultCategory),
		Price:      &price,
		Stock:      &stock,
		Thumbnails: rec.Thumbnails,
	}
}

// StripAccents removes combining marks, so "Neumático" becomes "Neumatico".
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func rawID(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	return strings.TrimSpace(strings.Trim(s, `"`))
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
