package models

// Role роль пользователя.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleTrainer Role = "TRAINER"
	RoleTrainee Role = "TRAINEE"
	RoleParent  Role = "PARENT"
)

// User пользователь вместе с профилями, нужными для отметки посещений.
type User struct {
	ID             string
	Username       string
	Roles          []Role
	TraineeProfile *TraineeProfile
	ParentProfile  *ParentProfile
	TrainerProfile *TrainerProfile
}

// HasRole проверяет наличие роли у пользователя.
func (u User) HasRole(r Role) bool {
	for _, role := range u.Roles {
		if role == r {
			return true
		}
	}
	return false
}

// TraineeProfile профиль ученика и группы, в которых он состоит.
type TraineeProfile struct {
	ID       string
	UserID   string
	GroupIDs []string
}

// InGroup проверяет членство ученика в группе.
func (p TraineeProfile) InGroup(groupID string) bool {
	for _, g := range p.GroupIDs {
		if g == groupID {
			return true
		}
	}
	return false
}

// ParentProfile профиль родителя.
type ParentProfile struct {
	ID     string
	UserID string
}

// ParentTraineeLink разрешает родителю отмечать ребёнка.
type ParentTraineeLink struct {
	ID        string
	ParentID  string
	TraineeID string
}

// TrainerProfile профиль тренера с ключом его QR-кода.
type TrainerProfile struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	QRCodeKey string `json:"qr_code_key"`
}
