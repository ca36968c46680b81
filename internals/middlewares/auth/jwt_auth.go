package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	helperAuth "tutorku_backend/internals/helpers/auth"
)

type AuthJWTOpts struct {
	Secret              string
	AllowCookieFallback bool // pakai cookie access_token jika tidak ada Bearer
	// OnPrincipal dipanggil setelah token valid, mis. upsert user lokal.
	OnPrincipal func(ctx context.Context, p *helperAuth.Principal) error
}

func AuthJWT(o AuthJWTOpts) fiber.Handler {
	secret := strings.TrimSpace(o.Secret)
	if secret == "" {
		panic("AuthJWT: Secret wajib diisi")
	}

	return func(c *fiber.Ctx) error {
		// 1) Ambil token: Authorization: Bearer xxx (atau cookie jika diizinkan)
		raw := ""
		if authz := strings.TrimSpace(c.Get(fiber.HeaderAuthorization)); strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			raw = strings.TrimSpace(authz[7:])
		} else if o.AllowCookieFallback {
			raw = strings.TrimSpace(c.Cookies("access_token"))
		}
		if raw == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
		}

		// 2) Parse + verifikasi algoritma
		tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !tok.Valid {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
		}

		claims, ok := tok.Claims.(jwt.MapClaims)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid token claims")
		}

		// 3) user_id: ambil id/sub/user_id dalam urutan preferensi
		rawID := firstClaim(claims, "id", "sub", "user_id")
		uid, err := uuid.Parse(rawID)
		if err != nil || uid == uuid.Nil {
			return fiber.NewError(fiber.StatusUnauthorized, "user_id tidak valid")
		}

		p := &helperAuth.Principal{
			UserID: uid,
			Email:  strings.ToLower(firstClaim(claims, "email")),
			Name:   firstClaim(claims, "name"),
			Image:  firstClaim(claims, "picture", "image"),
			Role:   strings.ToUpper(firstClaim(claims, "role")),
		}

		if o.OnPrincipal != nil {
			if err := o.OnPrincipal(c.UserContext(), p); err != nil {
				return err
			}
		}

		c.Locals(helperAuth.LocRawToken, raw)
		c.Locals(helperAuth.LocPrincipal, p)
		c.Locals(helperAuth.LocUserID, uid.String())
		c.Locals(helperAuth.LocUserRole, p.Role)

		return c.Next()
	}
}

// util kecil untuk ambil string claim pertama yang tidak kosong
func firstClaim(m jwt.MapClaims, keys ...string) string {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}
