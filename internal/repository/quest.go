package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/bebokaka99/truyenviethay-backend/internal/model"

	"github.com/Masterminds/squirrel"
)

type Quest struct {
	ID          int64     `db:"id"`
	Key         string    `db:"quest_key"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	ActionType  string    `db:"action_type"`
	Recurrence  string    `db:"recurrence"`
	TargetCount int       `db:"target_count"`
	RewardExp   int       `db:"reward_exp"`
	CreatedAt   time.Time `db:"created_at"`
}

func (q *Quest) toModel() *model.Quest {
	return &model.Quest{
		ID:          q.ID,
		Key:         q.Key,
		Name:        q.Name,
		Description: q.Description,
		ActionType:  model.ActionType(q.ActionType),
		Recurrence:  model.Recurrence(q.Recurrence),
		TargetCount: q.TargetCount,
		RewardExp:   q.RewardExp,
		CreatedAt:   q.CreatedAt,
	}
}

var questColumns = []string{
	"id", "quest_key", "name", "description", "action_type",
	"recurrence", "target_count", "reward_exp", "created_at",
}

func (r *Repository) selectQuests(ctx context.Context, where squirrel.Sqlizer) ([]*model.Quest, error) {
	builder := r.sb.Select(questColumns...).From("quests").OrderBy("id")
	if where != nil {
		builder = builder.Where(where)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	var rows []Quest
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	quests := make([]*model.Quest, 0, len(rows))
	for i := range rows {
		quests = append(quests, rows[i].toModel())
	}
	return quests, nil
}

func (r *Repository) GetQuestsByAction(ctx context.Context, action model.ActionType) ([]*model.Quest, error) {
	return r.selectQuests(ctx, squirrel.Eq{"action_type": string(action)})
}

func (r *Repository) GetAllQuests(ctx context.Context) ([]*model.Quest, error) {
	return r.selectQuests(ctx, nil)
}

func (r *Repository) GetQuestByKey(ctx context.Context, key string) (*model.Quest, error) {
	return r.getQuest(ctx, squirrel.Eq{"quest_key": key})
}

func (r *Repository) GetQuestByID(ctx context.Context, id int64) (*model.Quest, error) {
	return r.getQuest(ctx, squirrel.Eq{"id": id})
}

func (r *Repository) getQuest(ctx context.Context, where squirrel.Sqlizer) (*model.Quest, error) {
	query, args, err := r.sb.
		Select(questColumns...).
		From("quests").
		Where(where).
		ToSql()
	if err != nil {
		return nil, err
	}

	var quest Quest
	if err := r.db.GetContext(ctx, &quest, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return quest.toModel(), nil
}

func (r *Repository) CreateQuest(ctx context.Context, quest *model.Quest) error {
	query, args, err := r.sb.
		Insert("quests").
		Columns("quest_key", "name", "description", "action_type", "recurrence", "target_count", "reward_exp").
		Values(quest.Key, quest.Name, quest.Description, string(quest.ActionType), string(quest.Recurrence), quest.TargetCount, quest.RewardExp).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return err
	}

	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&quest.ID); err != nil {
		if isUniqueViolation(err) {
			return ErrQuestKeyExists
		}
		return err
	}
	return nil
}

func (r *Repository) UpdateQuest(ctx context.Context, quest *model.Quest) error {
	query, args, err := r.sb.
		Update("quests").
		SetMap(map[string]interface{}{
			"quest_key":    quest.Key,
			"name":         quest.Name,
			"description":  quest.Description,
			"action_type":  string(quest.ActionType),
			"recurrence":   string(quest.Recurrence),
			"target_count": quest.TargetCount,
			"reward_exp":   quest.RewardExp,
		}).
		Where(squirrel.Eq{"id": quest.ID}).
		ToSql()
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrQuestKeyExists
		}
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

func (r *Repository) DeleteQuest(ctx context.Context, id int64) error {
	query, args, err := r.sb.
		Delete("quests").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, query, args...)
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

type UserQuest struct {
	Quest
	CurrentCount sql.NullInt64 `db:"current_count"`
	IsClaimed    sql.NullBool  `db:"is_claimed"`
	LastUpdated  *time.Time    `db:"last_updated"`
}

// GetUserQuests returns every quest with the user's raw progress, if any.
func (r *Repository) GetUserQuests(ctx context.Context, userID int64) ([]*model.UserQuest, error) {
	query, args, err := r.sb.
		Select(
			"q.id", "q.quest_key", "q.name", "q.description", "q.action_type",
			"q.recurrence", "q.target_count", "q.reward_exp", "q.created_at",
			"uq.current_count", "uq.is_claimed", "uq.last_updated",
		).
		From("quests q").
		LeftJoin("user_quests uq ON uq.quest_id = q.id AND uq.user_id = ?", userID).
		OrderBy("q.id").
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []UserQuest
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	quests := make([]*model.UserQuest, 0, len(rows))
	for i := range rows {
		row := rows[i]
		quests = append(quests, &model.UserQuest{
			Quest:        *row.Quest.toModel(),
			CurrentCount: int(row.CurrentCount.Int64),
			IsClaimed:    row.IsClaimed.Bool,
			LastUpdated:  row.LastUpdated,
		})
	}
	return quests, nil
}
