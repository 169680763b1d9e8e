package service

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"gorm.io/gorm"

	"pantiku_backend/internals/configs"
	"pantiku_backend/internals/constants"
	userModel "pantiku_backend/internals/features/users/model"
)

// PortalService mengurus akun donor portal: upsert idempoten by email +
// welcome email dengan magic-login token. Dipanggil fire-and-forget dari
// webhook aktivasi subscription.
type PortalService struct {
	DB        *gorm.DB
	FromName  string
	FromEmail string
	PortalURL string
}

func NewPortalService(db *gorm.DB) *PortalService {
	return &PortalService{
		DB:        db,
		FromName:  configs.GetEnv("MAIL_FROM_NAME", "Pantiku"),
		FromEmail: configs.GetEnv("MAIL_FROM_EMAIL", "noreply@pantiku.org"),
		PortalURL: configs.GetEnv("DONOR_PORTAL_URL", "https://pantiku.org/portal"),
	}
}

// ProvisionDonor dijalankan di goroutine sendiri: panic/failure hanya
// dicatat, webhook pemanggilnya sudah lama selesai.
func (s *PortalService) ProvisionDonor(email, name string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ERROR] portal provision panic email=%s: %v", email, r)
		}
	}()

	user, created, err := s.EnsureDonorAccount(email, name)
	if err != nil {
		log.Printf("[ERROR] portal provision email=%s: %v", email, err)
		return
	}
	if !created {
		// donor lama aktivasi subscription baru: tidak perlu welcome ulang
		return
	}

	if err := s.sendWelcomeEmail(user); err != nil {
		// email gagal tidak pernah menggagalkan apa pun, hanya dicatat
		log.Printf("[WARN] welcome email email=%s: %v", email, err)
	}
}

// EnsureDonorAccount: upsert idempoten by email. Email sudah terdaftar →
// kembalikan user yang ada apa adanya (role tidak ditimpa).
func (s *PortalService) EnsureDonorAccount(email, name string) (*userModel.UserModel, bool, error) {
	var existing userModel.UserModel
	err := s.DB.First(&existing, "user_email = ?", email).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("lookup donor: %w", err)
	}

	if name == "" {
		name = email
	}
	user := userModel.UserModel{
		UserName:     name,
		UserEmail:    email,
		UserRoles:    []byte(fmt.Sprintf(`[%q]`, constants.RoleDonor)),
		UserIsActive: true,
	}
	if err := s.DB.Create(&user).Error; err != nil {
		return nil, false, fmt.Errorf("create donor: %w", err)
	}
	log.Printf("✅ donor portal: akun baru %s", email)
	return &user, true, nil
}

// MagicLoginToken: JWT berumur pendek untuk login tanpa password dari link
// di welcome email.
func (s *PortalService) MagicLoginToken(user *userModel.UserModel) (string, error) {
	claims := jwt.MapClaims{
		"sub":     user.UserID.String(),
		"roles":   []string{constants.RoleDonor},
		"purpose": "magic_login",
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
		"iat":     time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(configs.JWTSecret))
}

func (s *PortalService) sendWelcomeEmail(user *userModel.UserModel) error {
	if configs.SendgridAPIKey == "" {
		return errors.New("SENDGRID_API_KEY belum diset")
	}

	token, err := s.MagicLoginToken(user)
	if err != nil {
		return fmt.Errorf("magic token: %w", err)
	}
	loginURL := fmt.Sprintf("%s/login?token=%s", s.PortalURL, token)

	from := sgmail.NewEmail(s.FromName, s.FromEmail)
	to := sgmail.NewEmail(user.UserName, user.UserEmail)
	subject := "Selamat datang di Pantiku Donor Portal"
	text := fmt.Sprintf("Terima kasih sudah menjadi donatur!\n\nMasuk ke portal donor: %s\n\nLink berlaku 24 jam.", loginURL)
	html := fmt.Sprintf(`<p>Terima kasih sudah menjadi donatur!</p><p><a href=%q>Masuk ke portal donor</a></p><p>Link berlaku 24 jam.</p>`, loginURL)

	msg := sgmail.NewSingleEmail(from, subject, to, text, html)
	res, err := sendgrid.NewSendClient(configs.SendgridAPIKey).Send(msg)
	if err != nil {
		return err
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid status %d: %s", res.StatusCode, res.Body)
	}
	log.Printf("📧 welcome email terkirim ke %s", user.UserEmail)
	return nil
}
