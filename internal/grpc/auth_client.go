package grpc

import (
	"context"
	"errors"

	authpb "call-service/pb/auth"
)

// IdentityResolver maps opaque credentials to stable user identities and
// resolves user metadata. Implemented by AuthClient; mocked in tests.
type IdentityResolver interface {
	ValidateToken(ctx context.Context, token string) (int, error)
	GetUser(ctx context.Context, userID int) (*authpb.GetUserResponse, error)
	BulkUsers(ctx context.Context, ids []int) ([]*authpb.GetUserResponse, error)
}

// AuthClient wraps the auth-service gRPC client.
type AuthClient struct {
	client authpb.AuthServiceClient
}

// NewAuthClient constructs the wrapper.
func NewAuthClient(client authpb.AuthServiceClient) *AuthClient {
	return &AuthClient{client: client}
}

// ValidateToken verifies the JWT and returns the authenticated user id.
func (a *AuthClient) ValidateToken(ctx context.Context, token string) (int, error) {
	resp, err := a.client.ValidateToken(ctx, &authpb.ValidateTokenRequest{Token: token})
	if err != nil {
		return 0, err
	}
	if !resp.Valid || resp.UserId == 0 {
		return 0, errors.New("invalid token")
	}
	return int(resp.UserId), nil
}

// GetUser fetches user info from auth-service.
func (a *AuthClient) GetUser(ctx context.Context, userID int) (*authpb.GetUserResponse, error) {
	resp, err := a.client.GetUser(ctx, &authpb.GetUserRequest{UserId: int64(userID)})
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.Id == 0 {
		return nil, errors.New("user not found")
	}
	return resp, nil
}

// BulkUsers fetches multiple users in one call.
func (a *AuthClient) BulkUsers(ctx context.Context, ids []int) ([]*authpb.GetUserResponse, error) {
	if len(ids) == 0 {
		return []*authpb.GetUserResponse{}, nil
	}
	id64s := make([]int64, 0, len(ids))
	for _, id := range ids {
		id64s = append(id64s, int64(id))
	}

	resp, err := a.client.BulkUsers(ctx, &authpb.BulkUsersRequest{Ids: id64s})
	if err != nil {
		return nil, err
	}
	return resp.GetUsers(), nil
}

var _ IdentityResolver = (*AuthClient)(nil)
