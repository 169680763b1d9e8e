package oss

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"math"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"

	"pantiku_backend/internals/configs"
)

/* =======================================================================
   Konfigurasi WebP (ENV-driven) + opsi per-call
======================================================================= */

type WebPOptions struct {
	MaxW        int     // batas lebar (resize keep-aspect)
	MaxH        int     // batas tinggi
	TargetKB    int     // target ukuran; 0 = non-aktif (pakai Quality saja)
	Quality     float32 // quality saat TargetKB=0 atau initial guess
	MinQ        float32 // min quality utk binary search
	MaxQ        float32 // max quality utk binary search
	ToleranceKB int     // toleransi di atas target
	MinW        int     // lebar minimum saat iterative downscale
	MinH        int     // tinggi minimum
	ScaleStep   float32 // faktor perkecil tiap iterasi (0<step<1)
}

func DefaultWebPOptionsFromEnv() WebPOptions {
	return WebPOptions{
		MaxW:        configs.GetEnvInt("IMAGE_WEBP_MAX_W", 1600),
		MaxH:        configs.GetEnvInt("IMAGE_WEBP_MAX_H", 1600),
		TargetKB:    configs.GetEnvInt("IMAGE_WEBP_TARGET_KB", 0),
		Quality:     float32(configs.GetEnvInt("IMAGE_WEBP_QUALITY", 80)),
		MinQ:        float32(configs.GetEnvInt("IMAGE_WEBP_MIN_Q", 45)),
		MaxQ:        float32(configs.GetEnvInt("IMAGE_WEBP_MAX_Q", 85)),
		ToleranceKB: configs.GetEnvInt("IMAGE_WEBP_TOLERANCE_KB", 8),
		MinW:        configs.GetEnvInt("IMAGE_WEBP_MIN_W", 480),
		MinH:        configs.GetEnvInt("IMAGE_WEBP_MIN_H", 480),
		ScaleStep:   0.85,
	}
}

/* =======================================================================
   Decode gambar (jpeg/png/webp) dari []byte dengan sniff MIME
======================================================================= */

func decodeImage(all []byte, filename string) (image.Image, error) {
	if len(all) == 0 {
		return nil, fmt.Errorf("empty file")
	}
	head := all
	if len(head) > 512 {
		head = head[:512]
	}
	ct := http.DetectContentType(head)

	var (
		img image.Image
		err error
	)

	switch {
	case strings.Contains(ct, "jpeg"):
		img, err = jpeg.Decode(bytes.NewReader(all))
	case strings.Contains(ct, "png"):
		img, err = png.Decode(bytes.NewReader(all))
	case strings.Contains(ct, "webp"):
		img, err = webp.Decode(bytes.NewReader(all))
	default:
		// fallback by extension
		ext := strings.ToLower(filepath.Ext(filename))
		switch ext {
		case ".jpg", ".jpeg":
			img, err = jpeg.Decode(bytes.NewReader(all))
		case ".png":
			img, err = png.Decode(bytes.NewReader(all))
		case ".webp":
			img, err = webp.Decode(bytes.NewReader(all))
		default:
			return nil, fmt.Errorf("format tidak didukung: %s / %s", ct, ext)
		}
	}
	return img, err
}

/* =======================================================================
   Resize helpers (keep aspect). imaging.Fit/Lanczos untuk batas awal,
   CatmullRom untuk rescale presisi di loop target-size.
======================================================================= */

func downscaleIfNeeded(src image.Image, maxW, maxH int) image.Image {
	if maxW <= 0 && maxH <= 0 {
		return src
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if (maxW > 0 && w > maxW) || (maxH > 0 && h > maxH) {
		if maxW <= 0 {
			maxW = w
		}
		if maxH <= 0 {
			maxH = h
		}
		// Fit hanya memperkecil, aspect ratio terjaga
		return imaging.Fit(src, maxW, maxH, imaging.Lanczos)
	}
	return src
}

/* =======================================================================
   Encode WebP
   - TargetKB > 0 → binary search quality hingga <= target+tol,
     downscale bertahap kalau quality saja tidak cukup
   - TargetKB = 0 → encode sekali dengan Quality
   Re-encode ini sekaligus membuang seluruh metadata (EXIF/XMP) dari
   foto — ekstraksi GPS/tanggal harus terjadi SEBELUM lewat sini.
======================================================================= */

func encodeToWebP(img image.Image, opt WebPOptions) ([]byte, error) {
	encodeQ := func(im image.Image, q float32) ([]byte, error) {
		buf := new(bytes.Buffer)
		if err := webp.Encode(buf, im, &webp.Options{Lossless: false, Quality: q}); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	// Tanpa target ukuran → encode sekali
	if opt.TargetKB <= 0 {
		q := opt.Quality
		if q <= 0 {
			q = 80
		}
		return encodeQ(img, q)
	}

	target := opt.TargetKB * 1024
	tol := opt.ToleranceKB * 1024
	if tol <= 0 {
		tol = 8 * 1024
	}
	minQ := opt.MinQ
	maxQ := opt.MaxQ
	if minQ <= 0 {
		minQ = 45
	}
	if maxQ <= 0 {
		maxQ = 85
	}
	if minQ > maxQ {
		minQ, maxQ = maxQ, minQ
	}

	minW := opt.MinW
	minH := opt.MinH
	if minW <= 0 {
		minW = 480
	}
	if minH <= 0 {
		minH = 480
	}
	step := opt.ScaleStep
	if step <= 0 || step >= 1 {
		step = 0.85
	}

	cur := img
	last := []byte(nil)

	// Ulang sampai masuk target atau mentok minimum size
	for attempt := 0; attempt < 6; attempt++ {
		low, high := minQ, maxQ
		best := []byte(nil)

		for i := 0; i < 8; i++ {
			q := (low + high) / 2
			data, err := encodeQ(cur, q)
			if err != nil {
				return nil, err
			}
			if len(data) <= target+tol {
				best = data
				high = q
			} else {
				low = q
			}
		}
		if best == nil {
			var err error
			best, err = encodeQ(cur, low)
			if err != nil {
				return nil, err
			}
		}
		last = best

		if len(best) <= target+tol {
			return best, nil
		}

		b := cur.Bounds()
		cw, ch := b.Dx(), b.Dy()
		if cw <= minW && ch <= minH {
			return best, nil
		}

		// Estimasi skala: sqrt rasio target/actual, safety 0.95
		ratio := float64(target+tol) / float64(len(best))
		scale := math.Sqrt(ratio) * 0.95
		if scale >= 1.0 || scale > float64(step) {
			scale = float64(step)
		} else if scale < 0.5 {
			scale = 0.5
		}

		nw := int(math.Round(float64(cw) * scale))
		nh := int(math.Round(float64(ch) * scale))
		if nw < minW {
			nw = minW
		}
		if nh < minH {
			nh = minH
		}
		if nw >= cw && nh >= ch {
			nw = int(float64(cw) * float64(step))
			nh = int(float64(ch) * float64(step))
			if nw < minW {
				nw = minW
			}
			if nh < minH {
				nh = minH
			}
		}

		dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
		draw.CatmullRom.Scale(dst, dst.Bounds(), cur, b, draw.Over, nil)
		cur = dst
	}

	return last, nil
}

// ConvertBytesToWebP: decode → resize (opsional) → encode webp.
func ConvertBytesToWebP(all []byte, filename string, opts WebPOptions) ([]byte, error) {
	img, err := decodeImage(all, filename)
	if err != nil {
		return nil, err
	}
	img = downscaleIfNeeded(img, opts.MaxW, opts.MaxH)
	return encodeToWebP(img, opts)
}
