// gRPC service descriptor and client for PromptService.
// Messages travel as google.protobuf.Struct holding the JSON form of the
// request and response types in messages.go.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/nainya/promptvault/pkg/diff"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "promptvault.v1.PromptService"

// PromptServiceServer is the server API for PromptService
type PromptServiceServer interface {
	ExtractPlaceholders(context.Context, *ExtractRequest) (*ExtractResponse, error)
	Render(context.Context, *RenderRequest) (*RenderResponse, error)
	Rewrite(context.Context, *RewriteRequest) (*RewriteResponse, error)
	DiffSnapshots(context.Context, *DiffSnapshotsRequest) (*diff.PromptDiff, error)
	SavePrompt(context.Context, *SavePromptRequest) (*SavePromptResponse, error)
	ListPrompts(context.Context, *ListPromptsRequest) (*ListPromptsResponse, error)
	DeletePrompt(context.Context, *DeletePromptRequest) (*DeletePromptResponse, error)
	ListRevisions(context.Context, *ListRevisionsRequest) (*ListRevisionsResponse, error)
	SetMilestone(context.Context, *SetMilestoneRequest) (*SetMilestoneResponse, error)
	DiffRevisions(context.Context, *DiffRevisionsRequest) (*diff.PromptDiff, error)
}

// ServiceDesc describes PromptService for grpc.Server.RegisterService
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PromptServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("ExtractPlaceholders", PromptServiceServer.ExtractPlaceholders),
		unaryMethod("Render", PromptServiceServer.Render),
		unaryMethod("Rewrite", PromptServiceServer.Rewrite),
		unaryMethod("DiffSnapshots", PromptServiceServer.DiffSnapshots),
		unaryMethod("SavePrompt", PromptServiceServer.SavePrompt),
		unaryMethod("ListPrompts", PromptServiceServer.ListPrompts),
		unaryMethod("DeletePrompt", PromptServiceServer.DeletePrompt),
		unaryMethod("ListRevisions", PromptServiceServer.ListRevisions),
		unaryMethod("SetMilestone", PromptServiceServer.SetMilestone),
		unaryMethod("DiffRevisions", PromptServiceServer.DiffRevisions),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "promptvault/v1/prompt_service.proto",
}

// RegisterPromptServiceServer registers srv on s
func RegisterPromptServiceServer(s grpc.ServiceRegistrar, srv PromptServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func unaryMethod[Req, Resp any](name string, call func(PromptServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	method := fullMethod(name)

	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}

			handler := func(ctx context.Context, req any) (any, error) {
				var r Req
				if err := fromStruct(req.(*structpb.Struct), &r, true); err != nil {
					return nil, status.Errorf(codes.InvalidArgument, "malformed %s request: %v", name, err)
				}
				resp, err := call(srv.(PromptServiceServer), ctx, &r)
				if err != nil {
					return nil, err
				}
				out, err := toStruct(resp)
				if err != nil {
					return nil, status.Errorf(codes.Internal, "encode %s response: %v", name, err)
				}
				return out, nil
			}

			if interceptor == nil {
				return handler(ctx, in)
			}
			return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: method}, handler)
		},
	}
}

// toStruct converts a JSON-tagged value into a Struct message
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, err
	}
	return out, nil
}

// fromStruct decodes a Struct message into dst. strict rejects unknown fields.
func fromStruct(in *structpb.Struct, dst any, strict bool) error {
	b, err := protojson.Marshal(in)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	if strict {
		dec.DisallowUnknownFields()
	}
	return dec.Decode(dst)
}

// Client calls PromptService over a gRPC connection
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient creates a PromptService client
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Req, Resp any](ctx context.Context, c *Client, name string, req *Req, opts ...grpc.CallOption) (*Resp, error) {
	in, err := toStruct(req)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", name, err)
	}

	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod(name), in, out, opts...); err != nil {
		return nil, err
	}

	var resp Resp
	if err := fromStruct(out, &resp, false); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", name, err)
	}
	return &resp, nil
}

func (c *Client) ExtractPlaceholders(ctx context.Context, req *ExtractRequest, opts ...grpc.CallOption) (*ExtractResponse, error) {
	return invoke[ExtractRequest, ExtractResponse](ctx, c, "ExtractPlaceholders", req, opts...)
}

func (c *Client) Render(ctx context.Context, req *RenderRequest, opts ...grpc.CallOption) (*RenderResponse, error) {
	return invoke[RenderRequest, RenderResponse](ctx, c, "Render", req, opts...)
}

func (c *Client) Rewrite(ctx context.Context, req *RewriteRequest, opts ...grpc.CallOption) (*RewriteResponse, error) {
	return invoke[RewriteRequest, RewriteResponse](ctx, c, "Rewrite", req, opts...)
}

func (c *Client) DiffSnapshots(ctx context.Context, req *DiffSnapshotsRequest, opts ...grpc.CallOption) (*diff.PromptDiff, error) {
	return invoke[DiffSnapshotsRequest, diff.PromptDiff](ctx, c, "DiffSnapshots", req, opts...)
}

func (c *Client) SavePrompt(ctx context.Context, req *SavePromptRequest, opts ...grpc.CallOption) (*SavePromptResponse, error) {
	return invoke[SavePromptRequest, SavePromptResponse](ctx, c, "SavePrompt", req, opts...)
}

func (c *Client) ListPrompts(ctx context.Context, req *ListPromptsRequest, opts ...grpc.CallOption) (*ListPromptsResponse, error) {
	return invoke[ListPromptsRequest, ListPromptsResponse](ctx, c, "ListPrompts", req, opts...)
}

func (c *Client) DeletePrompt(ctx context.Context, req *DeletePromptRequest, opts ...grpc.CallOption) (*DeletePromptResponse, error) {
	return invoke[DeletePromptRequest, DeletePromptResponse](ctx, c, "DeletePrompt", req, opts...)
}

func (c *Client) ListRevisions(ctx context.Context, req *ListRevisionsRequest, opts ...grpc.CallOption) (*ListRevisionsResponse, error) {
	return invoke[ListRevisionsRequest, ListRevisionsResponse](ctx, c, "ListRevisions", req, opts...)
}

func (c *Client) SetMilestone(ctx context.Context, req *SetMilestoneRequest, opts ...grpc.CallOption) (*SetMilestoneResponse, error) {
	return invoke[SetMilestoneRequest, SetMilestoneResponse](ctx, c, "SetMilestone", req, opts...)
}

func (c *Client) DiffRevisions(ctx context.Context, req *DiffRevisionsRequest, opts ...grpc.CallOption) (*diff.PromptDiff, error) {
	return invoke[DiffRevisionsRequest, diff.PromptDiff](ctx, c, "DiffRevisions", req, opts...)
}
