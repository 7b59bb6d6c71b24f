package repository

import (
	"context"
	"fmt"

	"taskboard/internal/models"
	"taskboard/pkg/crypto"
)

const userColumns = "id, email, user_name, user_surname, hashed_password"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Email, &u.UserName, &u.UserSurname, &u.HashedPassword); err != nil {
		return nil, err
	}
	u.Tasks = []models.Task{}
	return &u, nil
}

func (s *Store) queryUser(ctx context.Context, where string, arg any) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE "+where+" ORDER BY id LIMIT 1", arg)
	u, err := scanUser(row)
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

// GetUser returns the user with id together with all of their tasks.
func (s *Store) GetUser(ctx context.Context, id int) (*models.User, error) {
	u, err := s.queryUser(ctx, "id = $1", id)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE owner_id = $1 ORDER BY id", u.ID)
	if err != nil {
		return nil, fmt.Errorf("error fetching user tasks: %w", err)
	}
	if u.Tasks, err = collectTasks(rows); err != nil {
		return nil, err
	}
	return u, nil
}

// GetUserByEmail skips the tasks relation; it backs the registration check.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.queryUser(ctx, "email = $1", email)
}

// GetUserByPassword matches hashed against the stored value verbatim and
// returns the lowest-id match.
func (s *Store) GetUserByPassword(ctx context.Context, hashed string) (*models.User, error) {
	return s.queryUser(ctx, "hashed_password = $1", hashed)
}

func (s *Store) ListUsers(ctx context.Context, skip, limit int) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY id LIMIT $1 OFFSET $2", limit, skip)
	if err != nil {
		return nil, fmt.Errorf("error fetching users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning users: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over users: %w", err)
	}
	if len(users) == 0 {
		return users, nil
	}

	byOwner, err := s.tasksForUserPage(ctx, skip, limit)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if tasks, ok := byOwner[users[i].ID]; ok {
			users[i].Tasks = tasks
		}
	}
	return users, nil
}

// CreateUser stores a new user with the password run through
// crypto.HashPassword.
func (s *Store) CreateUser(ctx context.Context, in models.NewUser) (*models.User, error) {
	u := &models.User{
		Email:          in.Email,
		UserName:       in.UserName,
		UserSurname:    in.UserSurname,
		HashedPassword: crypto.HashPassword(in.Password),
		Tasks:          []models.Task{},
	}
	err := s.db.QueryRowContext(ctx,
		"INSERT INTO users (email, user_name, user_surname, hashed_password) VALUES ($1, $2, $3, $4) RETURNING id",
		u.Email, u.UserName, u.UserSurname, u.HashedPassword,
	).Scan(&u.ID)
	if err != nil {
		if violated, onEmail := uniqueViolation(err); violated {
			if onEmail {
				return nil, models.ErrEmailTaken
			}
			return nil, models.ErrUserExists
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return u, nil
}

// tasksForUserPage loads the tasks of the users on the same page ListUsers
// selects, keyed by owner. The page is a subquery so the statement takes
// two parameters however many users it covers.
func (s *Store) tasksForUserPage(ctx context.Context, skip, limit int) (map[int][]models.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE owner_id IN "+
			"(SELECT id FROM users ORDER BY id LIMIT $1 OFFSET $2) ORDER BY id",
		limit, skip)
	if err != nil {
		return nil, fmt.Errorf("error fetching user tasks: %w", err)
	}
	tasks, err := collectTasks(rows)
	if err != nil {
		return nil, err
	}

	byOwner := make(map[int][]models.Task)
	for _, t := range tasks {
		byOwner[t.OwnerID] = append(byOwner[t.OwnerID], t)
	}
	return byOwner, nil
}
