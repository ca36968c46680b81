package service

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"tutorku_backend/internals/features/finance/payments/dto"
	"tutorku_backend/internals/features/finance/payments/model"
	helper "tutorku_backend/internals/helpers"
)

/* =========================================================
   OVERVIEW (tutor & operator)
========================================================= */

func (s *PaymentService) overviewQuery(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx).
		Table("payments AS p").
		Select(`p.payment_id AS id, p.payment_enrollment_id AS enrollment_id,
			p.payment_amount AS amount, p.payment_currency AS currency, p.payment_status AS status,
			p.payment_provider AS provider, p.payment_receipt_url AS receipt_url, p.payment_created_at AS created_at,
			c.class_id AS class_id, c.class_name AS class_name,
			tu.name AS tutor_name, su.name AS student_name`).
		Joins("JOIN enrollments e ON e.enrollment_id = p.payment_enrollment_id").
		Joins("JOIN classes c ON c.class_id = e.enrollment_class_id").
		Joins("JOIN tutors t ON t.tutor_id = c.class_tutor_id").
		Joins("LEFT JOIN users tu ON tu.id = t.tutor_user_id").
		Joins("JOIN students s ON s.student_id = e.enrollment_student_id").
		Joins("LEFT JOIN users su ON su.id = s.student_user_id").
		Order("p.payment_created_at DESC")
}

// ListForTutor: pembayaran untuk semua kelas milik tutor, terbaru dulu.
func (s *PaymentService) ListForTutor(ctx context.Context, tutorID uuid.UUID) ([]dto.PaymentOverviewItem, error) {
	rows := make([]dto.PaymentOverviewItem, 0)
	if err := s.overviewQuery(ctx).Where("c.class_tutor_id = ?", tutorID).Scan(&rows).Error; err != nil {
		return nil, helper.Internal(err)
	}
	return rows, nil
}

// AdminOverview: semua pembayaran, kelas beserta siswa terdaftar, dan total revenue.
func (s *PaymentService) AdminOverview(ctx context.Context) (*dto.AdminPaymentOverview, error) {
	out := &dto.AdminPaymentOverview{
		Payments: make([]dto.PaymentOverviewItem, 0),
		Classes:  make([]dto.OverviewClass, 0),
	}
	if err := s.overviewQuery(ctx).Scan(&out.Payments).Error; err != nil {
		return nil, helper.Internal(err)
	}
	for _, p := range out.Payments {
		switch p.Status {
		case model.PaymentStatusPaid:
			out.TotalRevenue += p.Amount
		case model.PaymentStatusRefunded:
			out.TotalRevenue -= p.Amount
		}
	}

	db := s.DB.WithContext(ctx)
	var classes []struct {
		ID          uuid.UUID
		Name        string
		TutorUserID uuid.UUID
		TutorName   *string
	}
	err := db.Table("classes AS c").
		Select("c.class_id AS id, c.class_name AS name, t.tutor_user_id AS tutor_user_id, tu.name AS tutor_name").
		Joins("JOIN tutors t ON t.tutor_id = c.class_tutor_id").
		Joins("LEFT JOIN users tu ON tu.id = t.tutor_user_id").
		Order("c.class_created_at DESC").
		Scan(&classes).Error
	if err != nil {
		return nil, helper.Internal(err)
	}

	var students []struct {
		ClassID uuid.UUID
		UserID  uuid.UUID
		Name    *string
		Status  string
	}
	err = db.Table("enrollments AS e").
		Select("e.enrollment_class_id AS class_id, s.student_user_id AS user_id, su.name AS name, e.enrollment_status AS status").
		Joins("JOIN students s ON s.student_id = e.enrollment_student_id").
		Joins("LEFT JOIN users su ON su.id = s.student_user_id").
		Order("e.enrollment_created_at ASC").
		Scan(&students).Error
	if err != nil {
		return nil, helper.Internal(err)
	}
	byClass := make(map[uuid.UUID][]dto.OverviewStudent)
	for _, st := range students {
		byClass[st.ClassID] = append(byClass[st.ClassID], dto.OverviewStudent{ID: st.UserID, Name: st.Name, Status: st.Status})
	}

	for _, c := range classes {
		list := byClass[c.ID]
		if list == nil {
			list = []dto.OverviewStudent{}
		}
		out.Classes = append(out.Classes, dto.OverviewClass{
			ID:       c.ID,
			Name:     c.Name,
			Tutor:    dto.OverviewTutor{ID: c.TutorUserID, Name: c.TutorName},
			Students: list,
		})
	}
	return out, nil
}
