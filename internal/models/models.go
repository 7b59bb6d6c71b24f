package models

import "time"

// User is a registered account. HashedPassword never leaves the service.
type User struct {
	ID             int    `json:"id"`
	Email          string `json:"email"`
	UserName       string `json:"user_name"`
	UserSurname    string `json:"user_surname"`
	HashedPassword string `json:"-"`
	Tasks          []Task `json:"tasks"`
}

// Task is a row of the tasks table. UserName and UserSurname are a snapshot
// of the owner's name taken when the task was created.
type Task struct {
	ID          int       `json:"id"`
	OwnerID     int       `json:"-"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	UserName    string    `json:"user_name"`
	UserSurname string    `json:"user_surname"`
}

// TaskSummary is returned when a task is created.
type TaskSummary struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	UserName    string  `json:"user_name"`
	UserSurname string  `json:"user_surname"`
}

// UserCreate is the registration body. Every field must be present; empty
// strings and free-form emails are stored as given.
type UserCreate struct {
	UserName    *string `json:"user_name" validate:"required"`
	UserSurname *string `json:"user_surname" validate:"required"`
	Email       *string `json:"email" validate:"required"`
	Password    *string `json:"password" validate:"required"`
}

func (in UserCreate) NewUser() NewUser {
	return NewUser{
		UserName:    *in.UserName,
		UserSurname: *in.UserSurname,
		Email:       *in.Email,
		Password:    *in.Password,
	}
}

// TaskCreate is the body of a new task. Title must be present, description
// may be omitted or null.
type TaskCreate struct {
	Title       *string `json:"title" validate:"required"`
	Description *string `json:"description"`
}

func (in TaskCreate) NewTask() NewTask {
	return NewTask{Title: *in.Title, Description: in.Description}
}

type TaskUpdate struct {
	Title       *string `json:"title" validate:"required"`
	Description *string `json:"description"`
}

// NewUser is a validated registration handed to storage.
type NewUser struct {
	UserName    string
	UserSurname string
	Email       string
	Password    string
}

type NewTask struct {
	Title       string
	Description *string
}

// Page holds offset/limit query parameters.
type Page struct {
	Skip  int `query:"skip" validate:"gte=0"`
	Limit int `query:"limit" validate:"gte=0"`
}

const DefaultLimit = 100

func DefaultPage() Page {
	return Page{Skip: 0, Limit: DefaultLimit}
}
