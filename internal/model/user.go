package model

// Role 用户角色（全局角色与团队内角色共用同一取值集合）
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
	RoleStaff   Role = "staff"
)

// IsAuthority 是否为团队管理角色（教师 / 管理员 / 教务）
func (r Role) IsAuthority() bool {
	return r == RoleTeacher || r == RoleAdmin || r == RoleStaff
}

// Valid 是否为已知角色
func (r Role) Valid() bool {
	return r == RoleStudent || r.IsAuthority()
}

// User 用户表 — 对应 users
type User struct {
	UserID       string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Name         string `gorm:"type:varchar(100);not null"                     json:"name"`
	Email        string `gorm:"type:varchar(255);not null"                     json:"email"`
	PasswordHash string `gorm:"type:varchar(255);not null"                     json:"-"`
	Role         Role   `gorm:"type:varchar(20);not null;default:'student'"    json:"role"`
	VersionedModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }
