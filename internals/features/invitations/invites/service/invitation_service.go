package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
	"gorm.io/gorm"

	"tutorku_backend/internals/features/invitations/invites/dto"
	"tutorku_backend/internals/features/invitations/invites/model"
	userModel "tutorku_backend/internals/features/users/user/model"
	helper "tutorku_backend/internals/helpers"
)

const (
	inviteCodeAttempts = 3
	// batas jalan naik pohon referral saat cek siklus
	maxReferralDepth = 256
	qrSize           = 256
)

type InvitationService struct {
	DB     *gorm.DB
	AppURL string
	Now    func() time.Time
}

func NewInvitationService(db *gorm.DB, appURL string) *InvitationService {
	return &InvitationService{
		DB:     db,
		AppURL: appURL,
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

/* =========================================================
   CREATE
========================================================= */

func (s *InvitationService) Create(ctx context.Context, inviterID uuid.UUID) (*model.InvitationModel, error) {
	db := s.DB.WithContext(ctx)
	for attempt := 1; attempt <= inviteCodeAttempts; attempt++ {
		inv := model.InvitationModel{
			InvitationCode:      helper.RandomCode(helper.InviteCodeLen),
			InvitationInviterID: inviterID,
			InvitationStatus:    model.InvitationPending,
		}
		err := db.Create(&inv).Error
		if err == nil {
			return &inv, nil
		}
		if !helper.IsUniqueViolation(err) {
			return nil, helper.Internal(err)
		}
		log.Printf("[WARN] invitation code collision attempt=%d", attempt)
	}
	return nil, helper.Internal(fmt.Errorf("invitation code: %d collisions", inviteCodeAttempts))
}

/* =========================================================
   READ
========================================================= */

func (s *InvitationService) findByCode(ctx context.Context, code string) (*model.InvitationModel, error) {
	var inv model.InvitationModel
	err := s.DB.WithContext(ctx).First(&inv, "invitation_code = ?", helper.NormalizeCode(code)).Error
	if err != nil {
		if helper.IsNotFound(err) {
			return nil, helper.NotFound("invitation not found")
		}
		return nil, helper.Internal(err)
	}
	return &inv, nil
}

func (s *InvitationService) GetByCode(ctx context.Context, code string) (*dto.InvitationDetail, error) {
	inv, err := s.findByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	out := &dto.InvitationDetail{
		ID:     inv.InvitationID,
		Code:   inv.InvitationCode,
		Status: inv.InvitationStatus,
	}
	var inviter userModel.UserModel
	err = s.DB.WithContext(ctx).Select("id, name, image").First(&inviter, "id = ?", inv.InvitationInviterID).Error
	switch {
	case err == nil:
		out.Inviter = dto.InviterInfo{Name: inviter.Name, Image: inviter.Image}
	case helper.IsNotFound(err):
		// inviter sudah tidak ada; undangan tetap bisa ditampilkan
	default:
		return nil, helper.Internal(err)
	}
	return out, nil
}

func (s *InvitationService) ListByInviter(ctx context.Context, inviterID uuid.UUID) ([]dto.InvitationListItem, error) {
	rows := make([]dto.InvitationListItem, 0)
	err := s.DB.WithContext(ctx).
		Table("invitations AS i").
		Select(`i.invitation_id AS id, i.invitation_code AS code, i.invitation_status AS status,
			i.invitation_created_at AS created_at, i.invitation_accepted_at AS accepted_at,
			u.email AS recipient_email`).
		Joins("LEFT JOIN users u ON u.id = i.invitation_recipient_id").
		Where("i.invitation_inviter_id = ?", inviterID).
		Order("i.invitation_created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, helper.Internal(err)
	}
	return rows, nil
}

func (s *InvitationService) ListChildren(ctx context.Context, userID uuid.UUID) ([]dto.ChildItem, error) {
	var users []userModel.UserModel
	err := s.DB.WithContext(ctx).
		Where("parent_id = ?", userID).
		Order("created_at ASC").
		Find(&users).Error
	if err != nil {
		return nil, helper.Internal(err)
	}
	out := make([]dto.ChildItem, 0, len(users))
	for _, u := range users {
		out = append(out, dto.ChildItem{ID: u.ID, Name: u.Name, Image: u.Image, Role: u.Role, CreatedAt: u.CreatedAt})
	}
	return out, nil
}

// ListDescendants membangun pohon referral di bawah userID (anak, cucu, dst),
// satu query per level dan dibatasi maxReferralDepth.
func (s *InvitationService) ListDescendants(ctx context.Context, userID uuid.UUID) ([]dto.ReferralNode, error) {
	db := s.DB.WithContext(ctx)
	byParent := make(map[uuid.UUID][]userModel.UserModel)
	seen := map[uuid.UUID]bool{userID: true}
	frontier := []uuid.UUID{userID}

	for depth := 0; depth < maxReferralDepth && len(frontier) > 0; depth++ {
		var level []userModel.UserModel
		if err := db.Where("parent_id IN ?", frontier).Order("created_at ASC").Find(&level).Error; err != nil {
			return nil, helper.Internal(err)
		}
		frontier = frontier[:0]
		for _, u := range level {
			if seen[u.ID] {
				continue
			}
			seen[u.ID] = true
			byParent[*u.ParentID] = append(byParent[*u.ParentID], u)
			frontier = append(frontier, u.ID)
		}
	}
	return buildReferralTree(byParent, userID), nil
}

func buildReferralTree(byParent map[uuid.UUID][]userModel.UserModel, parentID uuid.UUID) []dto.ReferralNode {
	children := byParent[parentID]
	out := make([]dto.ReferralNode, 0, len(children))
	for _, u := range children {
		out = append(out, dto.ReferralNode{
			ID:        u.ID,
			Name:      u.Name,
			Email:     u.Email,
			Role:      u.Role,
			CreatedAt: u.CreatedAt,
			Children:  buildReferralTree(byParent, u.ID),
		})
	}
	return out
}

// DescendantsByEmail: lookup operator, pohon referral milik user dengan email tsb.
func (s *InvitationService) DescendantsByEmail(ctx context.Context, email string) (*dto.ReferralTree, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, helper.Validation("email is required", map[string][]string{"email": {"required"}})
	}
	var u userModel.UserModel
	if err := s.DB.WithContext(ctx).First(&u, "email = ?", email).Error; err != nil {
		if helper.IsNotFound(err) {
			return nil, helper.NotFound("user not found")
		}
		return nil, helper.Internal(err)
	}
	descendants, err := s.ListDescendants(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	return &dto.ReferralTree{
		User:        dto.ReferralUser{ID: u.ID, Name: u.Name, Email: u.Email},
		Descendants: descendants,
	}, nil
}

// QR mengembalikan PNG berisi URL halaman join undangan.
func (s *InvitationService) QR(ctx context.Context, code string) ([]byte, error) {
	inv, err := s.findByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/invite/%s", s.AppURL, inv.InvitationCode)
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		return nil, helper.Internal(err)
	}
	return png, nil
}

/* =========================================================
   ACCEPT
========================================================= */

func (s *InvitationService) Accept(ctx context.Context, code string, userID uuid.UUID) (*model.InvitationModel, error) {
	inv, err := s.findByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if inv.InvitationInviterID == userID {
		return nil, helper.InvalidOperation("cannot accept your own invitation")
	}
	if inv.InvitationStatus != model.InvitationPending {
		return nil, helper.Conflict("invitation is no longer pending")
	}

	var u userModel.UserModel
	if err := s.DB.WithContext(ctx).First(&u, "id = ?", userID).Error; err != nil {
		if helper.IsNotFound(err) {
			return nil, helper.NotFound("user not found")
		}
		return nil, helper.Internal(err)
	}
	if u.ParentID != nil {
		return nil, helper.Conflict("user has already accepted an invitation")
	}

	return s.commitAccept(ctx, inv, userID)
}

// commitAccept menulis kedua sisi edge dalam satu transaksi. inv boleh
// snapshot lama: semua cek diulang lewat conditional update.
func (s *InvitationService) commitAccept(ctx context.Context, inv *model.InvitationModel, userID uuid.UUID) (*model.InvitationModel, error) {
	now := s.Now()
	var out model.InvitationModel
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cycle, err := wouldCreateCycle(tx, inv.InvitationInviterID, userID)
		if err != nil {
			return helper.Internal(err)
		}
		if cycle {
			return helper.InvalidOperation("invitation would create a referral cycle")
		}

		res := tx.Model(&model.InvitationModel{}).
			Where("invitation_id = ? AND invitation_status = ?", inv.InvitationID, model.InvitationPending).
			Updates(map[string]any{
				"invitation_status":       model.InvitationAccepted,
				"invitation_recipient_id": userID,
				"invitation_accepted_at":  now,
			})
		if res.Error != nil {
			if helper.IsUniqueViolation(res.Error) {
				return helper.Conflict("user has already accepted an invitation")
			}
			return helper.Internal(res.Error)
		}
		if res.RowsAffected == 0 {
			return helper.Conflict("invitation is no longer pending")
		}

		res = tx.Model(&userModel.UserModel{}).
			Where("id = ? AND parent_id IS NULL", userID).
			Update("parent_id", inv.InvitationInviterID)
		if res.Error != nil {
			return helper.Internal(res.Error)
		}
		if res.RowsAffected == 0 {
			return helper.Conflict("user has already accepted an invitation")
		}

		if err := tx.First(&out, "invitation_id = ?", inv.InvitationID).Error; err != nil {
			return helper.Internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] invitation %s accepted by user=%s", out.InvitationCode, userID)
	return &out, nil
}

// wouldCreateCycle: apakah userID ada di rantai leluhur inviter.
func wouldCreateCycle(tx *gorm.DB, inviterID, userID uuid.UUID) (bool, error) {
	cur := inviterID
	for depth := 0; depth < maxReferralDepth; depth++ {
		if cur == userID {
			return true, nil
		}
		var u userModel.UserModel
		if err := tx.Select("id, parent_id").First(&u, "id = ?", cur).Error; err != nil {
			if helper.IsNotFound(err) {
				return false, nil
			}
			return false, err
		}
		if u.ParentID == nil {
			return false, nil
		}
		cur = *u.ParentID
	}
	return false, nil
}

/* =========================================================
   DELETE
========================================================= */

func (s *InvitationService) Delete(ctx context.Context, id, userID uuid.UUID) error {
	db := s.DB.WithContext(ctx)

	var inv model.InvitationModel
	if err := db.First(&inv, "invitation_id = ? AND invitation_inviter_id = ?", id, userID).Error; err != nil {
		if helper.IsNotFound(err) {
			return helper.NotFound("invitation not found")
		}
		return helper.Internal(err)
	}
	if inv.InvitationStatus != model.InvitationPending {
		return helper.InvalidOperation("only pending invitations can be deleted")
	}

	res := db.Where("invitation_id = ? AND invitation_status = ?", id, model.InvitationPending).
		Delete(&model.InvitationModel{})
	if res.Error != nil {
		return helper.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return helper.InvalidOperation("only pending invitations can be deleted")
	}
	return nil
}
