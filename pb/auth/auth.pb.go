// Package auth contains hand-maintained client stubs for the auth-service
// gRPC API consumed by call-service. Kept in sync with auth.proto in the
// auth-service repository.
package auth

import (
	"context"

	grpc "google.golang.org/grpc"
)

type ValidateTokenRequest struct {
	Token string `protobuf:"bytes,1,opt,name=token,proto3" json:"token,omitempty"`
}

func (m *ValidateTokenRequest) Reset()         { *m = ValidateTokenRequest{} }
func (m *ValidateTokenRequest) String() string { return "ValidateTokenRequest" }
func (*ValidateTokenRequest) ProtoMessage()    {}

type ValidateTokenResponse struct {
	Valid  bool  `protobuf:"varint,1,opt,name=valid,proto3" json:"valid,omitempty"`
	UserId int64 `protobuf:"varint,2,opt,name=user_id,json=userId,proto3" json:"user_id,omitempty"`
}

func (m *ValidateTokenResponse) Reset()         { *m = ValidateTokenResponse{} }
func (m *ValidateTokenResponse) String() string { return "ValidateTokenResponse" }
func (*ValidateTokenResponse) ProtoMessage()    {}

type GetUserRequest struct {
	UserId int64 `protobuf:"varint,1,opt,name=user_id,json=userId,proto3" json:"user_id,omitempty"`
}

func (m *GetUserRequest) Reset()         { *m = GetUserRequest{} }
func (m *GetUserRequest) String() string { return "GetUserRequest" }
func (*GetUserRequest) ProtoMessage()    {}

type GetUserResponse struct {
	Id       int64  `protobuf:"varint,1,opt,name=id,proto3" json:"id,omitempty"`
	Username string `protobuf:"bytes,2,opt,name=username,proto3" json:"username,omitempty"`
}

func (m *GetUserResponse) Reset()         { *m = GetUserResponse{} }
func (m *GetUserResponse) String() string { return "GetUserResponse" }
func (*GetUserResponse) ProtoMessage()    {}

func (m *GetUserResponse) GetId() int64 {
	if m == nil {
		return 0
	}
	return m.Id
}

func (m *GetUserResponse) GetUsername() string {
	if m == nil {
		return ""
	}
	return m.Username
}

type BulkUsersRequest struct {
	Ids []int64 `protobuf:"varint,1,rep,packed,name=ids,proto3" json:"ids,omitempty"`
}

func (m *BulkUsersRequest) Reset()         { *m = BulkUsersRequest{} }
func (m *BulkUsersRequest) String() string { return "BulkUsersRequest" }
func (*BulkUsersRequest) ProtoMessage()    {}

type BulkUsersResponse struct {
	Users []*GetUserResponse `protobuf:"bytes,1,rep,name=users,proto3" json:"users,omitempty"`
}

func (m *BulkUsersResponse) Reset()         { *m = BulkUsersResponse{} }
func (m *BulkUsersResponse) String() string { return "BulkUsersResponse" }
func (*BulkUsersResponse) ProtoMessage()    {}

func (m *BulkUsersResponse) GetUsers() []*GetUserResponse {
	if m == nil {
		return nil
	}
	return m.Users
}

// AuthServiceClient is the client API for the AuthService service.
type AuthServiceClient interface {
	ValidateToken(ctx context.Context, in *ValidateTokenRequest, opts ...grpc.CallOption) (*ValidateTokenResponse, error)
	GetUser(ctx context.Context, in *GetUserRequest, opts ...grpc.CallOption) (*GetUserResponse, error)
	BulkUsers(ctx context.Context, in *BulkUsersRequest, opts ...grpc.CallOption) (*BulkUsersResponse, error)
}

type authServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewAuthServiceClient(cc grpc.ClientConnInterface) AuthServiceClient {
	return &authServiceClient{cc}
}

func (c *authServiceClient) ValidateToken(ctx context.Context, in *ValidateTokenRequest, opts ...grpc.CallOption) (*ValidateTokenResponse, error) {
	out := new(ValidateTokenResponse)
	err := c.cc.Invoke(ctx, "/auth.AuthService/ValidateToken", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *authServiceClient) GetUser(ctx context.Context, in *GetUserRequest, opts ...grpc.CallOption) (*GetUserResponse, error) {
	out := new(GetUserResponse)
	err := c.cc.Invoke(ctx, "/auth.AuthService/GetUser", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *authServiceClient) BulkUsers(ctx context.Context, in *BulkUsersRequest, opts ...grpc.CallOption) (*BulkUsersResponse, error) {
	out := new(BulkUsersResponse)
	err := c.cc.Invoke(ctx, "/auth.AuthService/BulkUsers", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}
