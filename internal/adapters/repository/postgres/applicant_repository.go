package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/kmsconnect/kms-connect/internal/core/applicant"
	pgdb "github.com/kmsconnect/kms-connect/internal/platform/db/postgres"
)

const (
	profileNIKConstraint    = "applicant_profiles_nik_key"
	profileUserIDConstraint = "applicant_profiles_user_id_key"
)

const profileColumns = `id, public_id, user_id, referrer_id,
               full_name, nik, birth_place, birth_date, gender, contact_phone, address,
               province_code, regency_code, district_code, village_code,
               sibling_count, birth_order, notes,
               father_name, father_age, father_occupation,
               mother_name, mother_age, mother_occupation,
               spouse_name, spouse_age, spouse_occupation,
               family_address, family_province_code, family_regency_code,
               family_district_code, family_village_code, family_contact_phone,
               has_passport, passport_number, passport_issue_date, passport_expiry_date, passport_issue_place,
               verification_status, submitted_at, verified_by, verified_at, verification_notes,
               version, created_at, updated_at`

// ApplicantRepository は PostgreSQL を利用した応募者プロフィール永続化の実装です。
type ApplicantRepository struct {
	pool pgdb.Queryer
}

// NewApplicantRepository は ApplicantRepository を生成します。
func NewApplicantRepository(pool pgdb.Queryer) *ApplicantRepository {
	return &ApplicantRepository{pool: pool}
}

// Create はプロフィールを新規作成します。
func (r *ApplicantRepository) Create(ctx context.Context, p *applicant.Profile) (*applicant.Profile, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO applicant_profiles (
               public_id, user_id, referrer_id,
               full_name, nik, birth_place, birth_date, gender, contact_phone, address,
               province_code, regency_code, district_code, village_code,
               sibling_count, birth_order, notes,
               father_name, father_age, father_occupation,
               mother_name, mother_age, mother_occupation,
               spouse_name, spouse_age, spouse_occupation,
               family_address, family_province_code, family_regency_code,
               family_district_code, family_village_code, family_contact_phone,
               has_passport, passport_number, passport_issue_date, passport_expiry_date, passport_issue_place,
               verification_status, version, created_at, updated_at)
        VALUES ($1, $2, $3,
                $4, $5, $6, $7, $8, $9, $10,
                $11, $12, $13, $14,
                $15, $16, $17,
                $18, $19, $20,
                $21, $22, $23,
                $24, $25, $26,
                $27, $28, $29,
                $30, $31, $32,
                $33, $34, $35, $36, $37,
                $38, 1, $39, $40)
        RETURNING `+profileColumns,
		append([]any{p.PublicID, p.UserID, nullableString(p.ReferrerID)},
			append(profileDataArgs(p), string(p.Status), p.CreatedAt, p.UpdatedAt)...)...,
	)

	created, err := scanProfile(row)
	if err != nil {
		return nil, translateApplicantPgError(err)
	}
	return created, nil
}

// Update はバージョンが一致する場合のみ基本情報を更新します。
func (r *ApplicantRepository) Update(ctx context.Context, p *applicant.Profile) (*applicant.Profile, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE applicant_profiles
           SET full_name = $1, nik = $2, birth_place = $3, birth_date = $4, gender = $5,
               contact_phone = $6, address = $7,
               province_code = $8, regency_code = $9, district_code = $10, village_code = $11,
               sibling_count = $12, birth_order = $13, notes = $14,
               father_name = $15, father_age = $16, father_occupation = $17,
               mother_name = $18, mother_age = $19, mother_occupation = $20,
               spouse_name = $21, spouse_age = $22, spouse_occupation = $23,
               family_address = $24, family_province_code = $25, family_regency_code = $26,
               family_district_code = $27, family_village_code = $28, family_contact_phone = $29,
               has_passport = $30, passport_number = $31, passport_issue_date = $32,
               passport_expiry_date = $33, passport_issue_place = $34,
               referrer_id = $35,
               version = version + 1,
               updated_at = $36
         WHERE id = $37
           AND version = $38
        RETURNING `+profileColumns,
		append(profileDataArgs(p), nullableString(p.ReferrerID), p.UpdatedAt, p.ID, p.Version)...,
	)

	updated, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, applicant.ErrProfileNotFound) {
			return nil, applicant.ErrConflict
		}
		return nil, translateApplicantPgError(err)
	}
	return updated, nil
}

// FindByID は ID でプロフィールを取得します。
func (r *ApplicantRepository) FindByID(ctx context.Context, id int64) (*applicant.Profile, error) {
	return r.findOne(ctx, "id = $1", id)
}

// FindByIDForShare は ID でプロフィールを取得し、トランザクション終了まで状態遷移を待たせます。
func (r *ApplicantRepository) FindByIDForShare(ctx context.Context, id int64) (*applicant.Profile, error) {
	return r.findOneLocked(ctx, "id = $1", id, "FOR SHARE")
}

// FindByPublicID は公開 ID でプロフィールを取得します。
func (r *ApplicantRepository) FindByPublicID(ctx context.Context, publicID string) (*applicant.Profile, error) {
	if !validUUID(publicID) {
		return nil, applicant.ErrProfileNotFound
	}
	return r.findOne(ctx, "public_id = $1", publicID)
}

// FindByUserID はユーザー ID でプロフィールを取得します。
func (r *ApplicantRepository) FindByUserID(ctx context.Context, userID string) (*applicant.Profile, error) {
	if !validUUID(userID) {
		return nil, applicant.ErrProfileNotFound
	}
	return r.findOne(ctx, "user_id = $1", userID)
}

func (r *ApplicantRepository) findOne(ctx context.Context, condition string, arg any) (*applicant.Profile, error) {
	return r.findOneLocked(ctx, condition, arg, "")
}

func (r *ApplicantRepository) findOneLocked(ctx context.Context, condition string, arg any, lock string) (*applicant.Profile, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+profileColumns+`
          FROM applicant_profiles
         WHERE `+condition+`
         LIMIT 1 `+lock+`
    `, arg)

	found, err := scanProfile(row)
	if err != nil {
		return nil, translateApplicantPgError(err)
	}
	return found, nil
}

// List はプロフィールの一覧を取得します。
func (r *ApplicantRepository) List(ctx context.Context, filter applicant.ListProfilesFilter) ([]*applicant.Profile, string, error) {
	if filter.Limit <= 0 {
		return nil, "", applicant.ErrInvalidPageSize
	}
	if filter.Offset < 0 {
		return nil, "", applicant.ErrInvalidPageToken
	}

	var (
		ph         placeholders
		conditions []string
	)
	if filter.Status != nil {
		conditions = append(conditions, "verification_status = "+ph.add(string(*filter.Status)))
	}
	if filter.ReferrerID != nil {
		if !validUUID(*filter.ReferrerID) {
			return nil, "", nil
		}
		conditions = append(conditions, "referrer_id = "+ph.add(*filter.ReferrerID))
	}
	if filter.ProvinceCode != nil {
		conditions = append(conditions, "province_code = "+ph.add(*filter.ProvinceCode))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "\n         WHERE " + strings.Join(conditions, " AND ")
	}

	limitPlaceholder := ph.add(filter.Limit + 1)
	offsetPlaceholder := ph.add(filter.Offset)

	query := `
        SELECT ` + profileColumns + `
          FROM applicant_profiles` + whereClause + `
         ORDER BY ` + profileOrderClause(filter.Order) + `
         LIMIT ` + limitPlaceholder + `
        OFFSET ` + offsetPlaceholder + `
    `

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, ph.args...)
	if err != nil {
		return nil, "", translateApplicantPgError(err)
	}
	defer rows.Close()

	var profiles []*applicant.Profile
	for rows.Next() {
		found, err := scanProfile(rows)
		if err != nil {
			return nil, "", translateApplicantPgError(err)
		}
		profiles = append(profiles, found)
	}
	if err := rows.Err(); err != nil {
		return nil, "", translateApplicantPgError(err)
	}

	var nextToken string
	if len(profiles) > filter.Limit {
		nextToken = strconv.Itoa(filter.Offset + filter.Limit)
		profiles = profiles[:filter.Limit]
	}
	return profiles, nextToken, nil
}

// ApplyTransition は状態とバージョンが一致する行のみ審査状態を更新します。
func (r *ApplicantRepository) ApplyTransition(ctx context.Context, t applicant.Transition) (*applicant.Profile, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE applicant_profiles
           SET verification_status = $1,
               submitted_at = $2,
               verified_by = $3,
               verified_at = $4,
               verification_notes = $5,
               version = version + 1,
               updated_at = $6
         WHERE id = $7
           AND verification_status = $8
           AND version = $9
        RETURNING `+profileColumns,
		string(t.To), nullableTime(t.SubmittedAt), nullableString(t.VerifiedBy), nullableTime(t.VerifiedAt),
		t.Notes, t.UpdatedAt, t.ProfileID, string(t.From), t.ExpectedVersion,
	)

	updated, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, applicant.ErrProfileNotFound) {
			return nil, applicant.ErrConflict
		}
		return nil, translateApplicantPgError(err)
	}
	return updated, nil
}

// ListWorkExperiences は職歴を表示順に取得します。
func (r *ApplicantRepository) ListWorkExperiences(ctx context.Context, profileID int64) ([]applicant.WorkExperience, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT id, company_name, position, start_date, end_date, still_employed, description, sort_order
          FROM work_experiences
         WHERE profile_id = $1
         ORDER BY sort_order ASC, id ASC
    `, profileID)
	if err != nil {
		return nil, translateApplicantPgError(err)
	}
	defer rows.Close()

	var entries []applicant.WorkExperience
	for rows.Next() {
		w, err := scanWorkExperience(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// ReplaceWorkExperiences は職歴を全件置き換えます。呼び出し側のトランザクション内で実行してください。
func (r *ApplicantRepository) ReplaceWorkExperiences(ctx context.Context, profileID int64, entries []applicant.WorkExperience) ([]applicant.WorkExperience, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	if _, err := exec.Exec(ctx, `DELETE FROM work_experiences WHERE profile_id = $1`, profileID); err != nil {
		return nil, translateApplicantPgError(err)
	}

	saved := make([]applicant.WorkExperience, 0, len(entries))
	for _, w := range entries {
		row := exec.QueryRow(ctx, `
        INSERT INTO work_experiences (profile_id, company_name, position, start_date, end_date, still_employed, description, sort_order)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, company_name, position, start_date, end_date, still_employed, description, sort_order
    `, profileID, w.CompanyName, w.Position, nullableTime(w.StartDate), nullableTime(w.EndDate), w.StillEmployed, w.Description, w.SortOrder)

		created, err := scanWorkExperience(row)
		if err != nil {
			return nil, translateApplicantPgError(err)
		}
		saved = append(saved, created)
	}
	return saved, nil
}

func profileOrderClause(order applicant.SortOrder) string {
	switch order {
	case applicant.SortSubmittedAsc:
		return "submitted_at ASC NULLS LAST, id ASC"
	case applicant.SortSubmittedDesc:
		return "submitted_at DESC NULLS LAST, id DESC"
	default:
		return "created_at DESC, id DESC"
	}
}

// profileDataArgs は基本情報列 (full_name から passport_issue_place まで) の値を返します。
func profileDataArgs(p *applicant.Profile) []any {
	return []any{
		p.FullName, nullableText(p.NIK), p.BirthPlace, nullableTime(p.BirthDate), string(p.Gender),
		p.ContactPhone, p.Address,
		p.Region.ProvinceCode, p.Region.RegencyCode, p.Region.DistrictCode, p.Region.VillageCode,
		nullableInt(p.SiblingCount), nullableInt(p.BirthOrder), p.Notes,
		p.Family.FatherName, nullableInt(p.Family.FatherAge), p.Family.FatherOccupation,
		p.Family.MotherName, nullableInt(p.Family.MotherAge), p.Family.MotherOccupation,
		p.Family.SpouseName, nullableInt(p.Family.SpouseAge), p.Family.SpouseOccupation,
		p.Family.Address, p.Family.Region.ProvinceCode, p.Family.Region.RegencyCode,
		p.Family.Region.DistrictCode, p.Family.Region.VillageCode, p.Family.ContactPhone,
		p.Passport.HasPassport, p.Passport.Number, nullableTime(p.Passport.IssueDate),
		nullableTime(p.Passport.ExpiryDate), p.Passport.IssuePlace,
	}
}

func scanProfile(row pgx.Row) (*applicant.Profile, error) {
	var (
		p                                applicant.Profile
		referrerID, nik, verifiedBy      sql.NullString
		birthDate, issueDate, expiryDate sql.NullTime
		submittedAt, verifiedAt          sql.NullTime
		siblingCount, birthOrder         sql.NullInt64
		fatherAge, motherAge, spouseAge  sql.NullInt64
		gender, status                   string
	)

	if err := row.Scan(
		&p.ID, &p.PublicID, &p.UserID, &referrerID,
		&p.FullName, &nik, &p.BirthPlace, &birthDate, &gender, &p.ContactPhone, &p.Address,
		&p.Region.ProvinceCode, &p.Region.RegencyCode, &p.Region.DistrictCode, &p.Region.VillageCode,
		&siblingCount, &birthOrder, &p.Notes,
		&p.Family.FatherName, &fatherAge, &p.Family.FatherOccupation,
		&p.Family.MotherName, &motherAge, &p.Family.MotherOccupation,
		&p.Family.SpouseName, &spouseAge, &p.Family.SpouseOccupation,
		&p.Family.Address, &p.Family.Region.ProvinceCode, &p.Family.Region.RegencyCode,
		&p.Family.Region.DistrictCode, &p.Family.Region.VillageCode, &p.Family.ContactPhone,
		&p.Passport.HasPassport, &p.Passport.Number, &issueDate, &expiryDate, &p.Passport.IssuePlace,
		&status, &submittedAt, &verifiedBy, &verifiedAt, &p.VerificationNotes,
		&p.Version, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, applicant.ErrProfileNotFound
		}
		return nil, err
	}

	p.ReferrerID = stringPtr(referrerID)
	p.NIK = nik.String
	p.BirthDate = timePtr(birthDate)
	p.Gender = applicant.Gender(gender)
	p.SiblingCount = intPtr(siblingCount)
	p.BirthOrder = intPtr(birthOrder)
	p.Family.FatherAge = intPtr(fatherAge)
	p.Family.MotherAge = intPtr(motherAge)
	p.Family.SpouseAge = intPtr(spouseAge)
	p.Passport.IssueDate = timePtr(issueDate)
	p.Passport.ExpiryDate = timePtr(expiryDate)
	p.Status = applicant.VerificationStatus(status)
	p.SubmittedAt = timePtr(submittedAt)
	p.VerifiedBy = stringPtr(verifiedBy)
	p.VerifiedAt = timePtr(verifiedAt)
	return &p, nil
}

func scanWorkExperience(row pgx.Row) (applicant.WorkExperience, error) {
	var (
		w                  applicant.WorkExperience
		startDate, endDate sql.NullTime
	)
	if err := row.Scan(&w.ID, &w.CompanyName, &w.Position, &startDate, &endDate, &w.StillEmployed, &w.Description, &w.SortOrder); err != nil {
		return applicant.WorkExperience{}, err
	}
	w.StartDate = timePtr(startDate)
	w.EndDate = timePtr(endDate)
	return w, nil
}

func translateApplicantPgError(err error) error {
	code, constraint, ok := pgErrorCode(err)
	if !ok {
		return err
	}
	switch code {
	case uniqueViolationCode:
		switch constraint {
		case profileNIKConstraint:
			return applicant.ErrNIKAlreadyExists
		case profileUserIDConstraint:
			return applicant.ErrProfileAlreadyExists
		}
	case foreignKeyViolationCode:
		return applicant.NewValidationError(foreignKeyField(constraint), "references an unknown user")
	case checkViolationCode:
		return applicant.NewValidationError(checkField(constraint), "is invalid")
	}
	return err
}

// foreignKeyField は外部キー制約名から項目名を推定します。
func foreignKeyField(constraint string) string {
	switch {
	case strings.Contains(constraint, "referrer"):
		return "referrer_id"
	case strings.Contains(constraint, "verified_by"):
		return "verified_by"
	default:
		return "user_id"
	}
}

// checkField は CHECK 制約名 (テーブル名_列名_check) から列名を取り出します。
func checkField(constraint string) string {
	name := strings.TrimSuffix(constraint, "_check")
	for _, table := range []string{"applicant_profiles_", "work_experiences_"} {
		if strings.HasPrefix(name, table) {
			return strings.TrimPrefix(name, table)
		}
	}
	return name
}
