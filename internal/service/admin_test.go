package service

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/agrichain-auth/internal/models"
	"github.com/pribylovaa/agrichain-auth/internal/storage"
)

func TestListUsers_LimitsAndFilter(t *testing.T) {
	svc, st, _ := newSvc(t)
	ctx := context.Background()
	farmer := models.RoleFarmer

	st.EXPECT().ListUsers(gomock.Any(), storage.ListFilter{Limit: defaultListLimit}).Return([]models.User{{}}, 1, nil)
	users, total, err := svc.ListUsers(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, 1, total)

	st.EXPECT().ListUsers(gomock.Any(), storage.ListFilter{Role: &farmer, Limit: maxListLimit, Offset: 10}).Return(nil, 0, nil)
	_, _, err = svc.ListUsers(ctx, ListFilter{Role: &farmer, Limit: 1000, Offset: 10})
	require.NoError(t, err)

	_, _, err = svc.ListUsers(ctx, ListFilter{Offset: -1})
	require.ErrorIs(t, err, ErrValidation)
}

func TestGetUser_NotFound(t *testing.T) {
	svc, st, _ := newSvc(t)
	id := uuid.New()

	st.EXPECT().UserByID(gomock.Any(), id).Return(nil, storage.ErrNotFound)

	_, err := svc.GetUser(context.Background(), id)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateUser_AnyRole(t *testing.T) {
	svc, st, _ := newSvc(t)
	ctx := context.Background()

	st.EXPECT().UserByEmail(gomock.Any(), "reg@example.com").Return(nil, storage.ErrNotFound)
	st.EXPECT().SaveUser(gomock.Any(), gomock.Any()).Return(nil)

	u, err := svc.CreateUser(ctx, NewUser{Name: "Reg", Email: "reg@example.com", Password: "secret1", Role: "Regulator"})
	require.NoError(t, err)
	require.Equal(t, models.RoleRegulator, u.Role)

	_, err = svc.CreateUser(ctx, NewUser{Name: "X", Email: "x@example.com", Password: "secret1", Role: "god"})
	require.ErrorIs(t, err, ErrInvalidRole)
}

func TestUpdateUser(t *testing.T) {
	svc, st, _ := newSvc(t)
	ctx := context.Background()
	id := uuid.New()

	t.Run("role only", func(t *testing.T) {
		role := "admin"
		st.EXPECT().UpdateUser(gomock.Any(), id, gomock.Any()).DoAndReturn(
			func(_ context.Context, _ uuid.UUID, upd storage.UserUpdate) (*models.User, error) {
				require.NotNil(t, upd.Role)
				require.Equal(t, models.RoleAdmin, *upd.Role)
				require.Nil(t, upd.Name)
				return &models.User{ID: id, Role: *upd.Role}, nil
			})

		u, err := svc.UpdateUser(ctx, id, UserUpdate{Role: &role})
		require.NoError(t, err)
		require.Equal(t, models.RoleAdmin, u.Role)
	})

	t.Run("invalid role", func(t *testing.T) {
		role := "owner"
		_, err := svc.UpdateUser(ctx, id, UserUpdate{Role: &role})
		require.ErrorIs(t, err, ErrInvalidRole)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := svc.UpdateUser(ctx, id, UserUpdate{})
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("not found", func(t *testing.T) {
		name := "N"
		st.EXPECT().UpdateUser(gomock.Any(), id, gomock.Any()).Return(nil, storage.ErrNotFound)

		_, err := svc.UpdateUser(ctx, id, UserUpdate{Name: &name})
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestDeleteUser(t *testing.T) {
	svc, st, _ := newSvc(t)
	ctx := context.Background()
	admin, other := uuid.New(), uuid.New()

	require.ErrorIs(t, svc.DeleteUser(ctx, admin, admin), ErrValidation)

	st.EXPECT().DeleteUser(gomock.Any(), other).Return(nil)
	require.NoError(t, svc.DeleteUser(ctx, admin, other))

	st.EXPECT().DeleteUser(gomock.Any(), other).Return(storage.ErrNotFound)
	require.ErrorIs(t, svc.DeleteUser(ctx, admin, other), ErrNotFound)
}

func TestStats_FillsAllRoles(t *testing.T) {
	svc, st, _ := newSvc(t)

	st.EXPECT().CountByRole(gomock.Any()).Return(map[models.Role]int{
		models.RoleFarmer: 3,
		models.RoleAdmin:  1,
	}, nil)

	s, err := svc.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, s.Total)
	require.Len(t, s.ByRole, len(models.Roles()))
	require.Equal(t, 0, s.ByRole[models.RoleRegulator])
	require.Equal(t, 3, s.ByRole[models.RoleFarmer])
}
