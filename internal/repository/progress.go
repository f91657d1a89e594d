package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/bebokaka99/truyenviethay-backend/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

// QuestTx is the set of row-locked operations available inside QuestTransaction.
type QuestTx interface {
	LockProgress(ctx context.Context, userID, questID int64) (*model.UserQuestProgress, error)
	SaveProgress(ctx context.Context, progress *model.UserQuestProgress) error
	LockClaimView(ctx context.Context, userID, questID int64) (*model.ClaimView, error)
	MarkClaimed(ctx context.Context, userID, questID int64) error
	SetUserExperience(ctx context.Context, userID int64, experience, level int) error
	LockUser(ctx context.Context, userID int64) (*model.User, error)
	SetLoginStreak(ctx context.Context, userID int64, streak int, loginAt time.Time) error
}

type questTx struct {
	r  *Repository
	tx *sqlx.Tx
}

// QuestTransaction runs fn in one database transaction. Rows locked through
// the QuestTx stay locked until fn returns.
func (r *Repository) QuestTransaction(ctx context.Context, fn func(tx QuestTx) error) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		return fn(&questTx{r: r, tx: tx})
	})
}

type UserQuestProgress struct {
	UserID       int64      `db:"user_id"`
	QuestID      int64      `db:"quest_id"`
	CurrentCount int        `db:"current_count"`
	IsClaimed    bool       `db:"is_claimed"`
	LastUpdated  *time.Time `db:"last_updated"`
}

// LockProgress makes sure a progress row exists, then locks it. A row created
// here has a nil LastUpdated, which callers treat as "no record".
func (t *questTx) LockProgress(ctx context.Context, userID, questID int64) (*model.UserQuestProgress, error) {
	insertQuery, insertArgs, err := t.r.sb.
		Insert("user_quests").
		Columns("user_id", "quest_id", "current_count", "is_claimed").
		Values(userID, questID, 0, false).
		Suffix("ON CONFLICT (user_id, quest_id) DO NOTHING").
		ToSql()
	if err != nil {
		return nil, err
	}

	if _, err := t.tx.ExecContext(ctx, insertQuery, insertArgs...); err != nil {
		return nil, err
	}

	query, args, err := t.r.forUpdate(t.r.sb.
		Select("user_id", "quest_id", "current_count", "is_claimed", "last_updated").
		From("user_quests").
		Where(squirrel.Eq{"user_id": userID, "quest_id": questID})).
		ToSql()
	if err != nil {
		return nil, err
	}

	var row UserQuestProgress
	if err := t.tx.GetContext(ctx, &row, query, args...); err != nil {
		return nil, err
	}

	return &model.UserQuestProgress{
		UserID:       row.UserID,
		QuestID:      row.QuestID,
		CurrentCount: row.CurrentCount,
		IsClaimed:    row.IsClaimed,
		LastUpdated:  row.LastUpdated,
	}, nil
}

func (t *questTx) SaveProgress(ctx context.Context, progress *model.UserQuestProgress) error {
	var lastUpdated *time.Time
	if progress.LastUpdated != nil {
		utc := progress.LastUpdated.UTC()
		lastUpdated = &utc
	}

	query, args, err := t.r.sb.
		Update("user_quests").
		SetMap(map[string]interface{}{
			"current_count": progress.CurrentCount,
			"is_claimed":    progress.IsClaimed,
			"last_updated":  lastUpdated,
		}).
		Where(squirrel.Eq{"user_id": progress.UserID, "quest_id": progress.QuestID}).
		ToSql()
	if err != nil {
		return err
	}

	return t.execOne(ctx, query, args...)
}

type ClaimView struct {
	UserID       int64      `db:"user_id"`
	QuestID      int64      `db:"quest_id"`
	QuestName    string     `db:"name"`
	Recurrence   string     `db:"recurrence"`
	TargetCount  int        `db:"target_count"`
	RewardExp    int        `db:"reward_exp"`
	CurrentCount int        `db:"current_count"`
	IsClaimed    bool       `db:"is_claimed"`
	LastUpdated  *time.Time `db:"last_updated"`
	Experience   int        `db:"experience"`
	Level        int        `db:"level"`
}

// LockClaimView loads the quest, the progress row and the user's experience,
// locking both the progress and the user rows.
func (t *questTx) LockClaimView(ctx context.Context, userID, questID int64) (*model.ClaimView, error) {
	query, args, err := t.r.forUpdate(t.r.sb.
		Select(
			"uq.user_id", "uq.quest_id", "q.name", "q.recurrence", "q.target_count", "q.reward_exp",
			"uq.current_count", "uq.is_claimed", "uq.last_updated", "u.experience", "u.level",
		).
		From("user_quests uq").
		Join("quests q ON q.id = uq.quest_id").
		Join("users u ON u.id = uq.user_id").
		Where(squirrel.Eq{"uq.user_id": userID, "uq.quest_id": questID}), "uq", "u").
		ToSql()
	if err != nil {
		return nil, err
	}

	var row ClaimView
	if err := t.tx.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &model.ClaimView{
		UserID:       row.UserID,
		QuestID:      row.QuestID,
		QuestName:    row.QuestName,
		Recurrence:   model.Recurrence(row.Recurrence),
		TargetCount:  row.TargetCount,
		RewardExp:    row.RewardExp,
		CurrentCount: row.CurrentCount,
		IsClaimed:    row.IsClaimed,
		LastUpdated:  row.LastUpdated,
		Experience:   row.Experience,
		Level:        row.Level,
	}, nil
}

func (t *questTx) MarkClaimed(ctx context.Context, userID, questID int64) error {
	query, args, err := t.r.sb.
		Update("user_quests").
		Set("is_claimed", true).
		Where(squirrel.Eq{"user_id": userID, "quest_id": questID}).
		ToSql()
	if err != nil {
		return err
	}

	return t.execOne(ctx, query, args...)
}

func (t *questTx) SetUserExperience(ctx context.Context, userID int64, experience, level int) error {
	query, args, err := t.r.sb.
		Update("users").
		SetMap(map[string]interface{}{
			"experience": experience,
			"level":      level,
		}).
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return err
	}

	return t.execOne(ctx, query, args...)
}

func (t *questTx) LockUser(ctx context.Context, userID int64) (*model.User, error) {
	query, args, err := t.r.forUpdate(t.r.sb.
		Select(userColumns...).
		From("users").
		Where(squirrel.Eq{"id": userID})).
		ToSql()
	if err != nil {
		return nil, err
	}

	var user User
	if err := t.tx.GetContext(ctx, &user, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user.toModel(), nil
}

func (t *questTx) SetLoginStreak(ctx context.Context, userID int64, streak int, loginAt time.Time) error {
	query, args, err := t.r.sb.
		Update("users").
		SetMap(map[string]interface{}{
			"login_streak":    streak,
			"last_login_date": loginAt.UTC(),
		}).
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return err
	}

	return t.execOne(ctx, query, args...)
}

func (t *questTx) execOne(ctx context.Context, query string, args ...interface{}) error {
	result, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}
