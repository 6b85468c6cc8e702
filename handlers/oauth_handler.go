package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	config "github.com/aiqda/aiqda-backend/configs"
	"github.com/aiqda/aiqda-backend/models"
	"github.com/aiqda/aiqda-backend/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	googleoauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
	"gorm.io/gorm"
)

const oauthStateTTL = 10 * time.Minute

// NewGoogleOAuthConfig returns nil when Google sign-in is not configured.
func NewGoogleOAuthConfig(cfg config.GoogleOAuthConfig) *oauth2.Config {
	if !cfg.Enabled() {
		return nil
	}
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       []string{googleoauth2.UserinfoEmailScope, googleoauth2.UserinfoProfileScope},
		Endpoint:     google.Endpoint,
	}
}

// The state secret is derived so a state token can never pass as a session token.
func stateSecret(jwtSecret string) []byte {
	return []byte(jwtSecret + ":oauth-state")
}

func signOAuthState(jwtSecret string, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   "google-oauth",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(oauthStateTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(stateSecret(jwtSecret))
}

func verifyOAuthState(jwtSecret, state string) error {
	token, err := jwt.ParseWithClaims(state, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return stateSecret(jwtSecret), nil
	})
	if err != nil {
		return err
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Subject != "google-oauth" {
		return errors.New("invalid oauth state")
	}
	return nil
}

func (h *Handler) GoogleLogin(c *fiber.Ctx) error {
	if h.GoogleOAuth == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Google sign-in is not enabled"})
	}
	state, err := signOAuthState(h.Config.JWTSecret, time.Now())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to start Google sign-in"})
	}
	authURL := h.GoogleOAuth.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.SetAuthURLParam("prompt", "select_account"))
	return c.Redirect(authURL, fiber.StatusTemporaryRedirect)
}

func (h *Handler) GoogleCallback(c *fiber.Ctx) error {
	if h.GoogleOAuth == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Google sign-in is not enabled"})
	}
	if err := verifyOAuthState(h.Config.JWTSecret, c.Query("state")); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid OAuth state"})
	}
	code := c.Query("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing authorization code"})
	}

	ctx := c.UserContext()
	token, err := h.GoogleOAuth.Exchange(ctx, code)
	if err != nil {
		log.Printf("🔥 Google code exchange failed: %v", err)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Failed to exchange authorization code"})
	}
	svc, err := googleoauth2.NewService(ctx, option.WithTokenSource(h.GoogleOAuth.TokenSource(ctx, token)))
	if err != nil {
		return respondError(c, err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		log.Printf("🔥 Failed to fetch Google user info: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Failed to fetch Google profile"})
	}
	if info.Email == "" || info.VerifiedEmail == nil || !*info.VerifiedEmail {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Google account email is not verified"})
	}

	user, err := h.findOrCreateGoogleUser(info)
	if err != nil {
		return respondError(c, err)
	}
	if !user.IsActive {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Your account has been deactivated"})
	}

	sessionToken, err := h.issueToken(*user)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create token"})
	}
	redirect := fmt.Sprintf("%s/auth/callback?token=%s", strings.TrimRight(h.Config.FrontendURL, "/"), url.QueryEscape(sessionToken))
	return c.Redirect(redirect, fiber.StatusTemporaryRedirect)
}

// findOrCreateGoogleUser links the Google identity to an existing account by email, or
// creates a student account with an unusable random password.
func (h *Handler) findOrCreateGoogleUser(info *googleoauth2.Userinfo) (*models.User, error) {
	var user models.User
	err := h.DB.Where("google_id = ?", info.Id).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	email := normalizeEmail(info.Email)
	err = h.DB.Where("email = ?", email).First(&user).Error
	switch {
	case err == nil:
		googleID := info.Id
		if err := h.DB.Model(&user).Update("google_id", googleID).Error; err != nil {
			return nil, err
		}
		user.GoogleID = &googleID
		return &user, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	random, err := utils.GenerateToken()
	if err != nil {
		return nil, err
	}
	hashed, err := h.hashPassword(random[:32])
	if err != nil {
		return nil, err
	}
	googleID := info.Id
	name := info.Name
	if name == "" {
		name = email
	}
	user = models.User{
		FullName: name,
		Email:    email,
		Password: hashed,
		Role:     models.RoleStudent,
		GoogleID: &googleID,
		IsActive: true,
	}
	if info.Picture != "" {
		picture := info.Picture
		user.ProfilePictureURL = &picture
	}
	if err := h.DB.Create(&user).Error; err != nil {
		return nil, err
	}
	log.Printf("✅ Created account %s from Google sign-in", user.ID)
	return &user, nil
}
