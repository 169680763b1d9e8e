package service

import (
	"bytes"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// GPSCoordinate hasil parse EXIF/XMP.
type GPSCoordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ExifData: field yang kita butuhkan sebelum foto di-reencode (reencode
// ke webp membuang seluruh metadata).
type ExifData struct {
	GPS       *GPSCoordinate `json:"gps,omitempty"`
	DateTaken *string        `json:"date_taken,omitempty"` // ISO-8601 lokal, tanpa zona
}

var exifHeader = []byte("Exif\x00\x00")

// ExtractExif membaca GPS + tanggal pemotretan dari buffer metadata mentah.
// Tidak pernah mengembalikan error: semua jalur gagal berakhir di field nil
// (dicatat di log), karena metadata rusak bukan alasan menolak upload.
func ExtractExif(raw []byte) ExifData {
	var out ExifData

	if len(raw) == 0 {
		return out
	}

	x := decodeStructured(raw)
	if x != nil {
		out.GPS = gpsFromIFD(x)
		out.DateTaken = dateFromIFD(x)
	}

	// Fallback permisif: scan teks utk XMP / string EXIF mentah.
	if out.GPS == nil {
		out.GPS = gpsFromTextScan(raw)
	}
	if out.DateTaken == nil {
		out.DateTaken = dateFromTextScan(raw)
	}

	return out
}

func decodeStructured(raw []byte) *exif.Exif {
	buf := raw
	if bytes.HasPrefix(buf, exifHeader) {
		buf = buf[len(exifHeader):]
	}
	x, err := exif.Decode(bytes.NewReader(buf))
	if err != nil {
		log.Printf("[INFO] exif: structured decode gagal, lanjut text-scan: %v", err)
		return nil
	}
	return x
}

/* =========================================================
   GPS: IFD rational triples + hemisphere ref
========================================================= */

func gpsFromIFD(x *exif.Exif) *GPSCoordinate {
	lat, err := dmsFromTag(x, exif.GPSLatitude)
	if err != nil {
		return nil
	}
	lng, err := dmsFromTag(x, exif.GPSLongitude)
	if err != nil {
		return nil
	}

	lat = applyHemisphereRef(lat, refString(x, exif.GPSLatitudeRef))
	lng = applyHemisphereRef(lng, refString(x, exif.GPSLongitudeRef))

	return validCoordinate(lat, lng)
}

func dmsFromTag(x *exif.Exif, field exif.FieldName) (float64, error) {
	tag, err := x.Get(field)
	if err != nil {
		return 0, err
	}
	var parts [3]float64
	for i := 0; i < 3; i++ {
		num, den, err := tag.Rat2(i)
		if err != nil || den == 0 {
			return 0, fmt.Errorf("exif: rational %s[%d] tidak valid", field, i)
		}
		parts[i] = float64(num) / float64(den)
	}
	return parts[0] + parts[1]/60 + parts[2]/3600, nil
}

func refString(x *exif.Exif, field exif.FieldName) string {
	tag, err := x.Get(field)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(s))
}

// S dan W = belahan negatif.
func applyHemisphereRef(v float64, ref string) float64 {
	if ref == "S" || ref == "W" {
		return -v
	}
	return v
}

// (0,0) dianggap "tidak ada GPS" — nilai default kamera rusak.
func validCoordinate(lat, lng float64) *GPSCoordinate {
	if lat == 0 && lng == 0 {
		return nil
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil
	}
	return &GPSCoordinate{Latitude: lat, Longitude: lng}
}

/* =========================================================
   Tanggal: DateTimeOriginal → DateTimeDigitized, year-bounded
========================================================= */

const exifTimeLayout = "2006:01:02 15:04:05"

func dateFromIFD(x *exif.Exif) *string {
	for _, field := range []exif.FieldName{exif.DateTimeOriginal, exif.DateTimeDigitized} {
		tag, err := x.Get(field)
		if err != nil {
			continue
		}
		if iso := parseExifDateString(tag); iso != nil {
			return iso
		}
	}
	return nil
}

func parseExifDateString(tag *tiff.Tag) *string {
	s, err := tag.StringVal()
	if err != nil {
		return nil
	}
	t, err := time.Parse(exifTimeLayout, strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return boundedISO(t)
}

// Tahun di luar [2000,2099] = metadata korup, tolak.
func boundedISO(t time.Time) *string {
	if t.Year() < 2000 || t.Year() > 2099 {
		log.Printf("[WARN] exif: tahun di luar batas (%d), diabaikan", t.Year())
		return nil
	}
	iso := t.Format("2006-01-02T15:04:05")
	return &iso
}

/* =========================================================
   Fallback text-scan (XMP / string mentah)
========================================================= */

var (
	// exif:GPSLatitude="-6.2543" atau <exif:GPSLatitude>-6.2543</...>
	reXMPLat = regexp.MustCompile(`GPSLatitude[="'>\s]{1,3}([+-]?\d{1,3}\.\d+)`)
	reXMPLng = regexp.MustCompile(`GPSLongitude[="'>\s]{1,3}([+-]?\d{1,3}\.\d+)`)

	// "2024:03:15 10:30:00" (EXIF kanonik)
	reExifDate = regexp.MustCompile(`(20\d{2}):(\d{2}):(\d{2})[ T](\d{2}):(\d{2}):(\d{2})`)
	// "2024-03-15T10:30:00" (ISO 8601 / XMP)
	reISODate = regexp.MustCompile(`(20\d{2})-(\d{2})-(\d{2})[T ](\d{2}):(\d{2}):(\d{2})`)
)

func gpsFromTextScan(raw []byte) *GPSCoordinate {
	latM := reXMPLat.FindSubmatch(raw)
	lngM := reXMPLng.FindSubmatch(raw)
	if latM == nil || lngM == nil {
		return nil
	}
	lat, err1 := strconv.ParseFloat(string(latM[1]), 64)
	lng, err2 := strconv.ParseFloat(string(lngM[1]), 64)
	if err1 != nil || err2 != nil {
		return nil
	}
	return validCoordinate(lat, lng)
}

func dateFromTextScan(raw []byte) *string {
	for _, re := range []*regexp.Regexp{reExifDate, reISODate} {
		m := re.FindSubmatch(raw)
		if m == nil {
			continue
		}
		s := fmt.Sprintf("%s-%s-%sT%s:%s:%s", m[1], m[2], m[3], m[4], m[5], m[6])
		t, err := time.Parse("2006-01-02T15:04:05", s)
		if err != nil {
			continue
		}
		if iso := boundedISO(t); iso != nil {
			return iso
		}
	}
	return nil
}
