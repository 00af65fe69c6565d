package recipes

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"recipehub/models"
	"recipehub/mq"
	"recipehub/utils"

	"github.com/disintegration/imaging"
	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	thumbWidth     = 300
	maxImageBytes  = 10 << 20
	maxImageSide   = 4000
	recipeImageDir = "recipes"
	qrSize         = 256
)

// MediaSettings locates uploaded files and builds public links.
type MediaSettings struct {
	UploadDir     string
	PublicBaseURL string
}

func (m MediaSettings) shareURL(id primitive.ObjectID) string {
	return strings.TrimRight(m.PublicBaseURL, "/") + "/recipes/" + id.Hex()
}

func (m MediaSettings) fileURL(name string) string {
	return strings.TrimRight(m.PublicBaseURL, "/") + "/static/uploads/" + recipeImageDir + "/" + name
}

// SetImage stores an uploaded picture with a thumbnail and points the
// recipe image at it.
func (s *Service) SetImage(ctx context.Context, id primitive.ObjectID, file multipart.File, header *multipart.FileHeader) (*models.Recipe, error) {
	defer file.Close()

	if err := utils.ValidateImageFileType(header); err != nil {
		return nil, err
	}
	if header.Size > maxImageBytes {
		return nil, models.NewValidationError("Image exceeds 10MB", nil)
	}

	buf, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	img, err := imaging.Decode(bytes.NewReader(buf), imaging.AutoOrientation(true))
	if err != nil {
		return nil, models.NewValidationError(fmt.Sprintf("Could not decode image %q", header.Filename), nil)
	}
	if b := img.Bounds(); b.Dx() > maxImageSide || b.Dy() > maxImageSide {
		return nil, models.NewValidationError(fmt.Sprintf("Image must be at most %dx%d", maxImageSide, maxImageSide), nil)
	}

	// make sure the recipe exists before touching the disk
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}

	dir := filepath.Join(s.media.UploadDir, recipeImageDir)
	if err := utils.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	base := id.Hex() + "-" + utils.GetUUID()
	origName := base + strings.ToLower(filepath.Ext(utils.SanitizeFilename(header.Filename)))
	if err := os.WriteFile(filepath.Join(dir, origName), buf, 0o644); err != nil {
		return nil, fmt.Errorf("save image: %w", err)
	}

	thumbName := base + "-thumb.jpg"
	thumb := imaging.Resize(img, thumbWidth, 0, imaging.Lanczos)
	if err := imaging.Save(thumb, filepath.Join(dir, thumbName), imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("save thumbnail: %w", err)
	}

	recipe, err := s.findAndUpdate(ctx, id, bson.M{"$set": bson.M{"image": s.media.fileURL(origName)}})
	if err != nil {
		return nil, err
	}
	s.events.Emit(ctx, mq.Event{Type: mq.RecipeImageUpdated, EntityID: id.Hex(), ActorID: recipe.UserID.Hex()})
	return recipe, nil
}

// QRCode returns a PNG that links to the recipe.
func (s *Service) QRCode(ctx context.Context, id primitive.ObjectID) ([]byte, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	png, err := qrcode.Encode(s.media.shareURL(id), qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

// ExportPDF renders a printable recipe card.
func (s *Service) ExportPDF(ctx context.Context, id primitive.ObjectID) ([]byte, error) {
	view, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	qrPNG, err := qrcode.Encode(s.media.shareURL(id), qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(view.Title, true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.MultiCell(140, 9, tr(view.Title), "", "L", false)

	pdf.SetFont("Arial", "", 11)
	if view.Author != nil {
		pdf.Cell(0, 7, tr("By "+view.Author.Name))
		pdf.Ln(7)
	}
	if view.Category != "" {
		pdf.Cell(0, 7, tr("Category: "+view.Category))
		pdf.Ln(7)
	}
	rating := "not rated yet"
	if view.AverageRating != nil {
		rating = fmt.Sprintf("%.1f / 5 (%d ratings)", *view.AverageRating, len(view.Ratings))
	}
	pdf.Cell(0, 7, fmt.Sprintf("Rating: %s   Upvotes: %d", rating, view.Upvotes))
	pdf.Ln(12)

	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 160, 10, 40, 40, false, imageOpts, 0, s.media.shareURL(id))

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 8, "Ingredients")
	pdf.Ln(9)
	pdf.SetFont("Arial", "", 11)
	for _, ing := range view.Ingredients {
		pdf.MultiCell(0, 6, tr("- "+ing), "", "L", false)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 8, "Instructions")
	pdf.Ln(9)
	pdf.SetFont("Arial", "", 11)
	pdf.MultiCell(0, 6, tr(view.Instructions), "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
