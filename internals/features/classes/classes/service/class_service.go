package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tutorku_backend/internals/features/classes/classes/dto"
	"tutorku_backend/internals/features/classes/classes/model"
	userService "tutorku_backend/internals/features/users/user/service"
	helper "tutorku_backend/internals/helpers"
)

const (
	// create diulang sekali kalau slug/code balapan dengan request lain
	createAttempts = 2
	slugSuffixLen  = 6
	classCodeLen   = 6
)

type ClassService struct {
	DB       *gorm.DB
	Currency string
}

func NewClassService(db *gorm.DB, currency string) *ClassService {
	return &ClassService{DB: db, Currency: strings.ToUpper(currency)}
}

func notFoundOr(err error, msg string) error {
	if helper.IsNotFound(err) {
		return helper.NotFound(msg)
	}
	return helper.Internal(err)
}

/* =========================================================
   CREATE
========================================================= */

func (s *ClassService) Create(ctx context.Context, tutor *userService.TutorActor, req dto.CreateClassRequest) (*model.ClassModel, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, helper.Validation("class name is required", map[string][]string{"name": {"required"}})
	}
	hours := req.DefaultHours
	if hours <= 0 {
		hours = 1
	}
	requiresPayment := req.PackagePrice != nil || req.PricePerHour > 0
	if req.RequiresPayment != nil {
		requiresPayment = *req.RequiresPayment
	}
	if requiresPayment && req.PricePerHour == 0 && (req.PackagePrice == nil || *req.PackagePrice == 0) {
		return nil, helper.Validation("paid class needs a price", map[string][]string{"price_per_hour": {"gt=0"}})
	}

	db := s.DB.WithContext(ctx)
	base := helper.GenerateSlug(name)
	if base == "" {
		base = "class"
	}

	var lastErr error
	for attempt := 1; attempt <= createAttempts; attempt++ {
		slug, err := s.pickSlug(db, base, attempt > 1)
		if err != nil {
			return nil, err
		}
		code, err := s.pickCode(db)
		if err != nil {
			return nil, err
		}

		class := model.ClassModel{
			ClassName:            name,
			ClassSlug:            slug,
			ClassCode:            code,
			ClassTutorID:         tutor.Tutor.TutorID,
			ClassDescription:     req.Description,
			ClassSubject:         req.Subject,
			ClassLevel:           req.Level,
			ClassImageURL:        req.ImageURL,
			ClassPricePerHour:    req.PricePerHour,
			ClassPackagePrice:    req.PackagePrice,
			ClassDefaultHours:    hours,
			ClassCurrency:        s.Currency,
			ClassAutoRenew:       req.AutoRenew,
			ClassRequiresPayment: requiresPayment,
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&class).Error; err != nil {
				return err
			}
			ch := model.ChannelModel{ChannelClassID: class.ClassID, ChannelName: model.DefaultChannelName}
			if err := tx.Create(&ch).Error; err != nil {
				return err
			}
			class.Channels = []model.ChannelModel{ch}
			return tx.Create(&model.ClassMemberModel{
				ClassMemberUserID:  tutor.User.ID,
				ClassMemberClassID: class.ClassID,
				ClassMemberRole:    model.ClassMemberOwner,
			}).Error
		})
		if err == nil {
			log.Printf("[INFO] class created id=%s slug=%s tutor=%s", class.ClassID, class.ClassSlug, tutor.Tutor.TutorID)
			return &class, nil
		}
		if !helper.IsUniqueViolation(err) {
			return nil, helper.Internal(err)
		}
		log.Printf("[WARN] class slug/code collision attempt=%d slug=%s", attempt, slug)
		lastErr = err
	}
	return nil, helper.Internal(fmt.Errorf("create class: %w", lastErr))
}

// pickSlug: slug dasar kalau masih bebas, kalau tidak tambahkan suffix acak.
func (s *ClassService) pickSlug(db *gorm.DB, base string, forceSuffix bool) (string, error) {
	if !forceSuffix {
		taken, err := exists(db, "class_slug = ?", base)
		if err != nil {
			return "", err
		}
		if !taken {
			return base, nil
		}
	}
	return helper.SlugWithSuffix(base, strings.ToLower(helper.RandomCode(slugSuffixLen))), nil
}

func (s *ClassService) pickCode(db *gorm.DB) (string, error) {
	code := helper.RandomCode(classCodeLen)
	taken, err := exists(db, "class_code = ?", code)
	if err != nil {
		return "", err
	}
	if taken {
		code = helper.RandomCode(classCodeLen)
	}
	return code, nil
}

func exists(db *gorm.DB, where string, arg any) (bool, error) {
	var n int64
	if err := db.Model(&model.ClassModel{}).Where(where, arg).Count(&n).Error; err != nil {
		return false, helper.Internal(err)
	}
	return n > 0, nil
}

/* =========================================================
   JOIN / LEAVE
========================================================= */

func (s *ClassService) FindByCode(ctx context.Context, code string) (*model.ClassModel, error) {
	var class model.ClassModel
	err := s.DB.WithContext(ctx).First(&class, "class_code = ?", helper.NormalizeCode(code)).Error
	if err != nil {
		return nil, notFoundOr(err, "class not found")
	}
	return &class, nil
}

func (s *ClassService) FindByID(ctx context.Context, id uuid.UUID) (*model.ClassModel, error) {
	var class model.ClassModel
	if err := s.DB.WithContext(ctx).First(&class, "class_id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "class not found")
	}
	return &class, nil
}

// JoinByCode hanya untuk kelas gratis; kelas berbayar lewat enrollment.
func (s *ClassService) JoinByCode(ctx context.Context, student *userService.StudentActor, code string) (*model.ClassModel, error) {
	class, err := s.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if class.ClassRequiresPayment {
		return nil, helper.InvalidOperation("class requires payment, enroll instead")
	}

	db := s.DB.WithContext(ctx)
	var n int64
	if err := db.Model(&model.ClassMemberModel{}).
		Where("class_member_user_id = ? AND class_member_class_id = ?", student.User.ID, class.ClassID).
		Count(&n).Error; err != nil {
		return nil, helper.Internal(err)
	}
	if n > 0 {
		return nil, helper.Conflict("already a member of this class")
	}

	err = db.Create(&model.ClassMemberModel{
		ClassMemberUserID:  student.User.ID,
		ClassMemberClassID: class.ClassID,
		ClassMemberRole:    model.ClassMemberMember,
	}).Error
	if err != nil {
		if helper.IsUniqueViolation(err) {
			return nil, helper.Conflict("already a member of this class")
		}
		return nil, helper.Internal(err)
	}
	return class, nil
}

// Leave: owner tidak boleh keluar; bukan anggota dianggap sukses.
func (s *ClassService) Leave(ctx context.Context, userID, classID uuid.UUID) error {
	db := s.DB.WithContext(ctx)

	var m model.ClassMemberModel
	err := db.First(&m, "class_member_user_id = ? AND class_member_class_id = ?", userID, classID).Error
	if err != nil {
		if helper.IsNotFound(err) {
			return nil
		}
		return helper.Internal(err)
	}
	if m.ClassMemberRole == model.ClassMemberOwner {
		return helper.InvalidOperation("class owner cannot leave the class")
	}

	err = db.Where("class_member_user_id = ? AND class_member_class_id = ? AND class_member_role <> ?",
		userID, classID, model.ClassMemberOwner).
		Delete(&model.ClassMemberModel{}).Error
	if err != nil {
		return helper.Internal(err)
	}
	return nil
}

// EnsureMember dipakai rekonsiliasi pembayaran di dalam transaksi.
// Idempoten: baris yang sudah ada (role apa pun) dibiarkan.
func EnsureMember(tx *gorm.DB, userID, classID uuid.UUID) error {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model.ClassMemberModel{
		ClassMemberUserID:  userID,
		ClassMemberClassID: classID,
		ClassMemberRole:    model.ClassMemberMember,
	}).Error
}

/* =========================================================
   READ
========================================================= */

func (s *ClassService) Preview(ctx context.Context, code string) (*dto.ClassPreview, error) {
	class, err := s.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)

	out := &dto.ClassPreview{ClassItem: dto.FromModel(*class, false)}

	var tutorName struct{ Name *string }
	err = db.Table("tutors AS t").
		Select("u.name AS name").
		Joins("JOIN users u ON u.id = t.tutor_user_id").
		Where("t.tutor_id = ?", class.ClassTutorID).
		Scan(&tutorName).Error
	if err != nil {
		return nil, helper.Internal(err)
	}
	out.TutorName = tutorName.Name

	if err := db.Model(&model.ClassMemberModel{}).
		Where("class_member_class_id = ?", class.ClassID).
		Count(&out.MemberCount).Error; err != nil {
		return nil, helper.Internal(err)
	}
	return out, nil
}

// ListForActor: tutor melihat kelas miliknya, student kelas yang diikuti,
// admin/system semua kelas.
func (s *ClassService) ListForActor(ctx context.Context, actor userService.Actor) ([]dto.ClassItem, error) {
	db := s.DB.WithContext(ctx).Preload("Channels").Order("class_created_at DESC")

	var rows []model.ClassModel
	var err error
	switch a := actor.(type) {
	case *userService.TutorActor:
		err = db.Where("class_tutor_id = ?", a.Tutor.TutorID).Find(&rows).Error
	case *userService.StudentActor, *userService.GuestActor:
		err = db.Where("class_id IN (?)",
			s.DB.Model(&model.ClassMemberModel{}).
				Select("class_member_class_id").
				Where("class_member_user_id = ?", actor.UserID()),
		).Find(&rows).Error
	case *userService.AdminActor, *userService.SystemActor:
		err = db.Find(&rows).Error
	default:
		return nil, helper.Internal(fmt.Errorf("unknown actor %T", actor))
	}
	if err != nil {
		return nil, helper.Internal(err)
	}

	out := make([]dto.ClassItem, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.FromModel(r, true))
	}
	return out, nil
}

func (s *ClassService) ListMembers(ctx context.Context, actor userService.Actor, classID uuid.UUID) ([]dto.MemberItem, error) {
	if _, err := s.FindByID(ctx, classID); err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)

	if !userService.IsOperator(actor) {
		var n int64
		if err := db.Model(&model.ClassMemberModel{}).
			Where("class_member_user_id = ? AND class_member_class_id = ?", actor.UserID(), classID).
			Count(&n).Error; err != nil {
			return nil, helper.Internal(err)
		}
		if n == 0 {
			return nil, helper.Forbidden("only class members can see the member list")
		}
	}

	rows := make([]dto.MemberItem, 0)
	err := db.Table("class_members AS m").
		Select(`m.class_member_user_id AS user_id, u.name AS name, u.image AS image,
			m.class_member_role AS role, m.class_member_joined_at AS joined_at`).
		Joins("JOIN users u ON u.id = m.class_member_user_id").
		Where("m.class_member_class_id = ?", classID).
		Order("m.class_member_joined_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, helper.Internal(err)
	}
	return rows, nil
}
