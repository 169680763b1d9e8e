package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"pantiku_backend/internals/features/classlogs/model"
)

// Ambang klasifikasi jarak GPS (meter). Batas masuk bucket yang lebih dekat.
const (
	gpsHighMaxM      = 200.0
	gpsLikelyMaxM    = 500.0
	gpsUncertainMaxM = 2000.0
)

// AnalysisInput: semua sinyal yang dibutuhkan satu kali analisis.
// GPS/EXIF diekstrak upstream (sebelum foto di-reencode) dan dioper ke sini.
type AnalysisInput struct {
	ClassLogID    uuid.UUID
	PhotoURLs     []string
	OrphanageName string
	OrphanageGPS  *GPSCoordinate
	ClassDate     time.Time
	ClassTime     *string
	PhotoGPS      *GPSCoordinate // dari EXIF foto pertama
	ExifDateTaken *string        // ISO-8601 lokal
}

type PhotoVerificationService struct {
	DB     *gorm.DB
	Vision VisionAnalyzer
}

func NewPhotoVerificationService(db *gorm.DB, vision VisionAnalyzer) *PhotoVerificationService {
	return &PhotoVerificationService{DB: db, Vision: vision}
}

// AnalyzeDetached menjalankan analisis di goroutine terpisah. Caller HTTP
// sudah mengembalikan response sebelum ini selesai; kegagalan apa pun hanya
// dicatat dengan class_log_id, row tidak disentuh, dan tidak ada retry.
func (s *PhotoVerificationService) AnalyzeDetached(input AnalysisInput) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[ERROR] photo-verification panic class_log_id=%s: %v", input.ClassLogID, r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		if err := s.Analyze(ctx, input); err != nil {
			log.Printf("[ERROR] photo-verification class_log_id=%s: %v", input.ClassLogID, err)
		}
	}()
}

// Analyze: jalur sinkron (dipakai goroutine di atas dan endpoint re-analyze
// manual). Idempotent secara efek — last write wins, tidak merge dengan
// verdict sebelumnya.
func (s *PhotoVerificationService) Analyze(ctx context.Context, input AnalysisInput) error {
	vision, err := s.Vision.AnalyzeClassPhotos(ctx, input.PhotoURLs, input.OrphanageName)
	if err != nil {
		return fmt.Errorf("vision call: %w", err)
	}

	// Tidak ada sinyal sama sekali → biarkan row tetap "belum dianalisis".
	if vision == nil && input.PhotoGPS == nil && input.ExifDateTaken == nil {
		log.Printf("[INFO] photo-verification class_log_id=%s: tidak ada sinyal (vision skip, tanpa GPS/EXIF), analisis dilewati", input.ClassLogID)
		return nil
	}

	distance := s.gpsDistance(input)
	locationMatch, locationNotes := fuseLocationVerdict(distance, vision)
	dateVerdict := ValidatePhotoDate(input.ExifDateTaken, input.ClassDate, input.ClassTime)

	now := time.Now()
	updates := map[string]interface{}{
		"class_log_ai_orphanage_match":  locationMatch,
		"class_log_ai_confidence_notes": joinNotes(locationNotes, dateVerdict.Notes),
		"class_log_ai_gps_distance_m":   distance,
		"class_log_ai_date_match":       dateVerdict.DateMatch,
		"class_log_ai_time_match":       dateVerdict.TimeMatch,
		"class_log_exif_date_taken":     input.ExifDateTaken,
		"class_log_ai_analyzed_at":      now,
	}
	if vision != nil {
		updates["class_log_ai_kids_count"] = vision.KidsCount
		updates["class_log_ai_location"] = vision.Location
		updates["class_log_ai_photo_timestamp"] = vision.PhotoTimestamp
	}

	// Satu UPDATE atomik: verdict tidak pernah tertulis separuh.
	res := s.DB.WithContext(ctx).
		Model(&model.ClassLogModel{}).
		Where("class_log_id = ?", input.ClassLogID).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("save verdict: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// log bisa saja sudah dihapus selama analisis berjalan
		log.Printf("[WARN] photo-verification class_log_id=%s: row tidak ditemukan saat menyimpan verdict", input.ClassLogID)
	}
	return nil
}

func (s *PhotoVerificationService) gpsDistance(input AnalysisInput) *float64 {
	if input.PhotoGPS == nil || input.OrphanageGPS == nil {
		return nil
	}
	d := HaversineMeters(
		input.PhotoGPS.Latitude, input.PhotoGPS.Longitude,
		input.OrphanageGPS.Latitude, input.OrphanageGPS.Longitude,
	)
	return &d
}

// ClassifyGPSDistance: jarak → verdict. Nilai batas masuk bucket yang lebih
// dekat (200m = high, 500m = likely, 2000m = uncertain).
func ClassifyGPSDistance(meters float64) string {
	switch {
	case meters <= gpsHighMaxM:
		return model.MatchHigh
	case meters <= gpsLikelyMaxM:
		return model.MatchLikely
	case meters <= gpsUncertainMaxM:
		return model.MatchUncertain
	default:
		return model.MatchUnlikely
	}
}

// fuseLocationVerdict menggabungkan sinyal GPS dan vision.
// GPS menang atas vision (lebih dapat dipercaya daripada inferensi visual);
// notes menyebut SEMUA metode yang dipakai + rationale vision.
func fuseLocationVerdict(distanceM *float64, vision *VisionResult) (*string, string) {
	methods := make([]string, 0, 2)
	var match *string

	if distanceM != nil {
		v := ClassifyGPSDistance(*distanceM)
		match = &v
		methods = append(methods, fmt.Sprintf("GPS (%.0fm from orphanage)", *distanceM))
	}
	if vision != nil {
		methods = append(methods, fmt.Sprintf("AI vision (%s)", vision.OrphanageMatch))
		if match == nil {
			v := vision.OrphanageMatch
			match = &v
		}
	}

	notes := strings.Join(methods, " + ")
	if vision != nil && vision.ConfidenceNotes != "" {
		if notes != "" {
			notes += ": "
		}
		notes += vision.ConfidenceNotes
	}
	return match, notes
}

func joinNotes(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " | ")
}
