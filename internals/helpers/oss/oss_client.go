package oss

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func getEnv(k string) string { return strings.TrimSpace(os.Getenv(k)) }

// batas ukuran uploader di controller (guard ringan)
var maxUploadSize = int64(5 * 1024 * 1024)

type OSSService struct {
	Client     *oss.Client
	Bucket     *oss.Bucket
	Endpoint   string
	BucketName string
	Prefix     string // optional: "uploads/"
}

func NewOSSServiceFromEnv(prefix string) (*OSSService, error) {
	endpoint := getEnv("ALI_OSS_ENDPOINT")
	ak := getEnv("ALI_OSS_ACCESS_KEY")
	sk := getEnv("ALI_OSS_SECRET_KEY")
	bucketName := getEnv("ALI_OSS_BUCKET")
	if endpoint == "" || ak == "" || sk == "" || bucketName == "" {
		return nil, fmt.Errorf("missing env: ALI_OSS_ENDPOINT/ACCESS_KEY/SECRET_KEY/BUCKET")
	}

	client, err := oss.New(endpoint, ak, sk)
	if err != nil {
		return nil, fmt.Errorf("oss.New: %w", err)
	}

	bkt, err := client.Bucket(bucketName)
	if err != nil {
		return nil, fmt.Errorf("client.Bucket: %w", err)
	}

	return &OSSService{
		Client:     client,
		Bucket:     bkt,
		Endpoint:   endpoint,
		BucketName: bucketName,
		Prefix:     strings.Trim(prefix, "/"),
	}, nil
}

/* =======================================================================
   Upload helpers
======================================================================= */

// UploadPhotoAsWebP: recompress foto ke webp lalu upload ke
// "orphanages/{orphanage_id}/class-logs". Mengembalikan public URL.
// Re-encode membuang metadata — EXIF harus diekstrak sebelum pemanggilan ini.
func (s *OSSService) UploadPhotoAsWebP(ctx context.Context, orphanageID uuid.UUID, raw []byte, filename string) (string, error) {
	if orphanageID == uuid.Nil {
		return "", fiber.NewError(fiber.StatusBadRequest, "orphanage_id tidak valid")
	}
	if int64(len(raw)) > maxUploadSize {
		return "", fiber.NewError(fiber.StatusRequestEntityTooLarge, "Ukuran gambar maksimal 5MB")
	}

	webpData, err := ConvertBytesToWebP(raw, filename, DefaultWebPOptionsFromEnv())
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "format tidak didukung") {
			return "", fiber.NewError(fiber.StatusUnsupportedMediaType, "Unsupported image format (pakai jpg/png/webp)")
		}
		return "", err
	}

	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	dir := fmt.Sprintf("orphanages/%s/class-logs", orphanageID.String())
	key := s.buildObjectKey(dir, base+".webp")

	opts := []oss.Option{
		oss.WithContext(ctx),
		oss.ContentType("image/webp"),
		oss.ContentDisposition("inline"),
		oss.CacheControl("public, max-age=31536000, immutable"),
	}
	if err := s.Bucket.PutObject(key, bytes.NewReader(webpData), opts...); err != nil {
		return "", fiber.NewError(fiber.StatusBadGateway, "Gagal upload ke OSS")
	}
	return s.PublicURL(key), nil
}

// UploadStream: upload mentah (dipakai untuk arsip log, invoice PDF, dsb).
func (s *OSSService) UploadStream(ctx context.Context, key string, r io.Reader, contentType string) error {
	if key == "" {
		return fmt.Errorf("empty key")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return s.Bucket.PutObject(key, r, oss.WithContext(ctx), oss.ContentType(contentType))
}

/* =======================================================================
   List / Read / Delete (prefix-based)
======================================================================= */

// ListKeys mengembalikan semua object key di bawah prefix (paginated di SDK).
func (s *OSSService) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	token := ""
	for {
		res, err := s.Bucket.ListObjectsV2(
			oss.Prefix(strings.Trim(prefix, "/")),
			oss.ContinuationToken(token),
			oss.MaxKeys(1000),
		)
		if err != nil {
			return nil, err
		}
		for _, obj := range res.Objects {
			keys = append(keys, obj.Key)
		}
		if !res.IsTruncated {
			return keys, nil
		}
		token = res.NextContinuationToken
	}
}

func (s *OSSService) ReadObject(ctx context.Context, key string) ([]byte, error) {
	body, err := s.Bucket.GetObject(key, oss.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return io.ReadAll(body)
}

func (s *OSSService) DeleteObject(ctx context.Context, key string) error {
	return s.Bucket.DeleteObject(key, oss.WithContext(ctx))
}

func (s *OSSService) DeleteObjects(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	const maxChunk = 1000
	for start := 0; start < len(keys); start += maxChunk {
		end := start + maxChunk
		if end > len(keys) {
			end = len(keys)
		}
		if _, err := s.Bucket.DeleteObjects(keys[start:end], oss.WithContext(ctx)); err != nil {
			return err
		}
	}
	return nil
}

// DeleteByPublicURL menghapus object dari public URL-nya (dipakai saat
// photo replacement / cascade delete class log).
func (s *OSSService) DeleteByPublicURL(ctx context.Context, publicURL string) error {
	if strings.TrimSpace(publicURL) == "" {
		return fmt.Errorf("empty public url")
	}
	key, err := ExtractKeyFromPublicURL(publicURL)
	if err != nil {
		return fmt.Errorf("extract key: %w", err)
	}
	return s.DeleteObject(ctx, key)
}

func (s *OSSService) DeleteManyByPublicURL(ctx context.Context, publicURLs []string) {
	keys := make([]string, 0, len(publicURLs))
	for _, u := range publicURLs {
		key, err := ExtractKeyFromPublicURL(u)
		if err != nil {
			log.Printf("[WARN] oss: skip delete %q: %v", u, err)
			continue
		}
		keys = append(keys, key)
	}
	if err := s.DeleteObjects(ctx, keys); err != nil {
		log.Printf("[WARN] oss: batch delete: %v", err)
	}
}

/* =======================================================================
   Public URL & key utils
======================================================================= */

func (s *OSSService) PublicURL(key string) string {
	if key == "" {
		return ""
	}
	if base := getEnv("ALI_OSS_PUBLIC_BASE"); base != "" {
		return strings.TrimRight(base, "/") + "/" + key
	}
	end := strings.TrimPrefix(strings.TrimPrefix(s.Endpoint, "https://"), "http://")
	return fmt.Sprintf("https://%s.%s/%s", s.BucketName, end, key)
}

func ExtractKeyFromPublicURL(publicURL string) (string, error) {
	if publicURL == "" {
		return "", fmt.Errorf("empty url")
	}
	if base := getEnv("ALI_OSS_PUBLIC_BASE"); base != "" {
		base = strings.TrimRight(base, "/") + "/"
		if strings.HasPrefix(publicURL, base) {
			return strings.TrimPrefix(publicURL, base), nil
		}
	}
	u := publicURL
	if i := strings.Index(u, "://"); i >= 0 {
		u = u[i+3:]
	}
	if i := strings.Index(u, "/"); i >= 0 {
		return u[i+1:], nil
	}
	return "", fmt.Errorf("cannot extract key from url: %s", publicURL)
}

func (s *OSSService) buildObjectKey(dir, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filename, ext)
	if base == "" {
		base = "file"
	}
	ts := time.Now().Format("20060102_150405")

	parts := make([]string, 0, 3)
	if s.Prefix != "" {
		parts = append(parts, s.Prefix)
	}
	if d := strings.Trim(dir, "/"); d != "" {
		parts = append(parts, d)
	}
	parts = append(parts, fmt.Sprintf("%s_%s_%s%s", slugify(base), ts, randHex(3), ext))
	return strings.Join(parts, "/")
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	r := strings.NewReplacer(" ", "-", "_", "-")
	s = r.Replace(s)
	s = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return -1
	}, s)
	if s == "" {
		return "file"
	}
	return s
}

func randHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// ReadMultipart membaca isi file multipart sekali jalan (EXIF + convert
// sama-sama butuh byte mentah, jadi jangan stream dua kali).
func ReadMultipart(fh *multipart.FileHeader) ([]byte, error) {
	if fh == nil {
		return nil, fmt.Errorf("nil file header")
	}
	if fh.Size > maxUploadSize {
		return nil, fiber.NewError(fiber.StatusRequestEntityTooLarge, "Ukuran gambar maksimal 5MB")
	}
	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer src.Close()
	return io.ReadAll(src)
}
