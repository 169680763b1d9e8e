package service

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"pantiku_backend/internals/features/classlogs/model"
)

// DateTimeVerdict: hasil perbandingan timestamp EXIF vs tanggal/jam kelas
// yang diklaim guru. Disimpan berdampingan dengan verdict GPS, tidak digabung.
type DateTimeVerdict struct {
	DateMatch string // high|likely|uncertain|unlikely
	TimeMatch string
	Notes     string
}

var reClockTime = regexp.MustCompile(`(\d{1,2})[:.](\d{2})`)

// ValidatePhotoDate membandingkan waktu pemotretan EXIF dengan klaim kelas.
// Toleransi:
//   - tanggal: hari sama = high; selisih 1 hari = likely (slack zona waktu
//     kamera); lebih = unlikely
//   - jam: selisih ≤2 jam = high; ≤6 jam = likely; lebih = unlikely
//
// exifDateTaken nil atau tidak terparse → kedua verdict "uncertain".
func ValidatePhotoDate(exifDateTaken *string, classDate time.Time, classTime *string) DateTimeVerdict {
	if exifDateTaken == nil || strings.TrimSpace(*exifDateTaken) == "" {
		return DateTimeVerdict{
			DateMatch: model.MatchUncertain,
			TimeMatch: model.MatchUncertain,
			Notes:     "No EXIF capture timestamp available",
		}
	}

	taken, err := time.Parse("2006-01-02T15:04:05", strings.TrimSpace(*exifDateTaken))
	if err != nil {
		return DateTimeVerdict{
			DateMatch: model.MatchUncertain,
			TimeMatch: model.MatchUncertain,
			Notes:     "EXIF capture timestamp unparseable",
		}
	}

	v := DateTimeVerdict{}
	notes := make([]string, 0, 2)

	// ---- tanggal ----
	dayDiff := int(math.Abs(taken.Truncate(24 * time.Hour).Sub(classDate.Truncate(24 * time.Hour)).Hours() / 24))
	switch {
	case dayDiff == 0:
		v.DateMatch = model.MatchHigh
		notes = append(notes, "EXIF date matches class date")
	case dayDiff == 1:
		v.DateMatch = model.MatchLikely
		notes = append(notes, "EXIF date within 1 day of class date")
	default:
		v.DateMatch = model.MatchUnlikely
		notes = append(notes, fmt.Sprintf("EXIF date %d days from class date", dayDiff))
	}

	// ---- jam (hanya jika guru mengisi class_time) ----
	claimed := parseClaimedTime(classTime)
	if claimed == nil {
		v.TimeMatch = model.MatchUncertain
		notes = append(notes, "no claimed class time to compare")
	} else {
		takenMin := taken.Hour()*60 + taken.Minute()
		diff := int(math.Abs(float64(takenMin - *claimed)))
		if diff > 12*60 {
			diff = 24*60 - diff
		}
		switch {
		case diff <= 120:
			v.TimeMatch = model.MatchHigh
			notes = append(notes, "capture time within 2h of class time")
		case diff <= 360:
			v.TimeMatch = model.MatchLikely
			notes = append(notes, "capture time within 6h of class time")
		default:
			v.TimeMatch = model.MatchUnlikely
			notes = append(notes, fmt.Sprintf("capture time %dh from class time", diff/60))
		}
	}

	v.Notes = strings.Join(notes, "; ")
	return v
}

// parseClaimedTime mengambil jam pertama dari teks bebas class_time
// ("14:00", "14.00 - 15.30 WIB", "jam 9:30") → menit sejak tengah malam.
func parseClaimedTime(classTime *string) *int {
	if classTime == nil {
		return nil
	}
	m := reClockTime.FindStringSubmatch(*classTime)
	if m == nil {
		return nil
	}
	h, err1 := strconv.Atoi(m[1])
	mm, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil || h > 23 || mm > 59 {
		return nil
	}
	min := h*60 + mm
	return &min
}
