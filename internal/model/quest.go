package model

import (
	"fmt"
	"time"
)

type ActionType string

const (
	ActionLogin   ActionType = "login"
	ActionRead    ActionType = "read"
	ActionComment ActionType = "comment"
	// ActionStreak quests mirror an externally computed value instead of counting events.
	ActionStreak ActionType = "streak"
)

func ParseActionType(s string) (ActionType, error) {
	switch a := ActionType(s); a {
	case ActionLogin, ActionRead, ActionComment, ActionStreak:
		return a, nil
	}
	return "", fmt.Errorf("unknown action type %q", s)
}

// Absolute reports whether progress is overwritten rather than accumulated.
func (a ActionType) Absolute() bool {
	return a == ActionStreak
}

// Presence reports whether progress counts distinct days rather than events.
func (a ActionType) Presence() bool {
	return a == ActionLogin
}

type Recurrence string

const (
	RecurrenceDaily       Recurrence = "daily"
	RecurrenceWeekly      Recurrence = "weekly"
	RecurrenceAchievement Recurrence = "achievement"
)

func ParseRecurrence(s string) (Recurrence, error) {
	switch r := Recurrence(s); r {
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceAchievement:
		return r, nil
	}
	return "", fmt.Errorf("unknown recurrence %q", s)
}

type Quest struct {
	ID          int64
	Key         string
	Name        string
	Description string
	ActionType  ActionType
	Recurrence  Recurrence
	TargetCount int
	RewardExp   int
	CreatedAt   time.Time
}

type UserQuestProgress struct {
	UserID       int64
	QuestID      int64
	CurrentCount int
	IsClaimed    bool
	LastUpdated  *time.Time
}

type QuestStatus string

const (
	StatusUnstarted  QuestStatus = "unstarted"
	StatusInProgress QuestStatus = "in_progress"
	StatusCompleted  QuestStatus = "completed"
	StatusClaimed    QuestStatus = "claimed"
)

// UserQuest is a quest definition joined with one user's progress in the current period.
type UserQuest struct {
	Quest
	CurrentCount int
	IsClaimed    bool
	LastUpdated  *time.Time
	Status       QuestStatus
}

// ClaimView is the locked snapshot a claim is validated against.
type ClaimView struct {
	UserID       int64
	QuestID      int64
	QuestName    string
	Recurrence   Recurrence
	TargetCount  int
	RewardExp    int
	CurrentCount int
	IsClaimed    bool
	LastUpdated  *time.Time
	Experience   int
	Level        int
}

type ClaimResult struct {
	Message    string
	Reward     int
	Experience int
	Level      int
	LeveledUp  bool
}
