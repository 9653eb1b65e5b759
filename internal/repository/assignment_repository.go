package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/workload-api/internal/models"
)

const assignmentColumns = "a.id, a.teacher_id, a.subject_id, a.class_id, a.semester, a.hours_per_week, a.team_group_id, a.optimized, a.created_at, a.updated_at"

// AssignmentRepository persists teacher-subject-class-semester assignments.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

func (r *AssignmentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

func assignmentWhere(filter models.AssignmentFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("a.%s = $%d", column, len(args)))
	}
	add("teacher_id", filter.TeacherID)
	add("class_id", filter.ClassID)
	add("subject_id", filter.SubjectID)
	add("semester", string(filter.Semester))
	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// List returns raw assignment records matching the filter.
func (r *AssignmentRepository) List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, error) {
	where, args := assignmentWhere(filter)
	query := "SELECT " + assignmentColumns + " FROM assignments a" + where + " ORDER BY a.semester ASC, a.class_id ASC, a.subject_id ASC, a.id ASC"
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, args...); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return assignments, nil
}

// ListDetails returns assignments joined with teacher, subject and class labels.
func (r *AssignmentRepository) ListDetails(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, error) {
	where, args := assignmentWhere(filter)
	query := "SELECT " + assignmentColumns + `,
       t.short_code AS teacher_code, t.name AS teacher_name,
       s.short_code AS subject_code, s.name AS subject_name,
       c.name AS class_name
FROM assignments a
JOIN teachers t ON t.id = a.teacher_id
JOIN subjects s ON s.id = a.subject_id
JOIN classes c ON c.id = a.class_id` + where + `
ORDER BY a.semester ASC, c.name ASC, s.short_code ASC, t.short_code ASC`
	var details []models.AssignmentDetail
	if err := r.db.SelectContext(ctx, &details, query, args...); err != nil {
		return nil, fmt.Errorf("list assignment details: %w", err)
	}
	return details, nil
}

// FindByID fetches a single assignment.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	query := "SELECT " + assignmentColumns + " FROM assignments a WHERE a.id = $1"
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// FindBySlot returns records sharing the normalization key of a: same
// teacher, subject, class, semester and team group.
func (r *AssignmentRepository) FindBySlot(ctx context.Context, exec sqlx.ExtContext, a models.Assignment) ([]models.Assignment, error) {
	query := "SELECT " + assignmentColumns + ` FROM assignments a
WHERE a.teacher_id = $1 AND a.subject_id = $2 AND a.class_id = $3 AND a.semester = $4 AND a.team_group_id IS NOT DISTINCT FROM $5::text
ORDER BY a.hours_per_week DESC, a.id ASC`
	var assignments []models.Assignment
	if err := sqlx.SelectContext(ctx, r.exec(exec), &assignments, query, a.TeacherID, a.SubjectID, a.ClassID, a.Semester, a.TeamGroupID); err != nil {
		return nil, fmt.Errorf("find assignment slot: %w", err)
	}
	return assignments, nil
}

// Create inserts a new assignment.
func (r *AssignmentRepository) Create(ctx context.Context, exec sqlx.ExtContext, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = now
	}
	assignment.UpdatedAt = now
	const query = `INSERT INTO assignments (id, teacher_id, subject_id, class_id, semester, hours_per_week, team_group_id, optimized, created_at, updated_at)
		VALUES (:id, :teacher_id, :subject_id, :class_id, :semester, :hours_per_week, :team_group_id, :optimized, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, assignment); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// Update rewrites hours, team group and optimization flag of an assignment.
func (r *AssignmentRepository) Update(ctx context.Context, exec sqlx.ExtContext, assignment *models.Assignment) error {
	assignment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE assignments SET hours_per_week = :hours_per_week, team_group_id = :team_group_id, optimized = :optimized, updated_at = :updated_at WHERE id = :id`
	result, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, assignment)
	if err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	return requireAffected(result, "update assignment")
}

// Delete removes an assignment by id.
func (r *AssignmentRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	const query = `DELETE FROM assignments WHERE id = $1`
	result, err := r.exec(exec).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	return requireAffected(result, "delete assignment")
}

func requireAffected(result sql.Result, op string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
