package rpc

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// MergeServiceName is the fully-qualified name of the MergeService service.
const MergeServiceName = "housemerge.v1.MergeService"

// Procedure paths, as they appear in the URL and in connect.Spec.Procedure.
const (
	MergeServiceMergePeopleProcedure     = "/housemerge.v1.MergeService/MergePeople"
	MergeServicePreviewMergeProcedure    = "/housemerge.v1.MergeService/PreviewMerge"
	MergeServiceListMergeAuditsProcedure = "/housemerge.v1.MergeService/ListMergeAudits"
)

// MergeServiceHandler is implemented by the server side of MergeService.
type MergeServiceHandler interface {
	MergePeople(context.Context, *connect.Request[MergePeopleRequest]) (*connect.Response[MergePeopleResponse], error)
	PreviewMerge(context.Context, *connect.Request[PreviewMergeRequest]) (*connect.Response[PreviewMergeResponse], error)
	ListMergeAudits(context.Context, *connect.Request[ListMergeAuditsRequest]) (*connect.Response[ListMergeAuditsResponse], error)
}

// NewMergeServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewMergeServiceHandler(svc MergeServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{
		connect.WithCodec(NewCodec(CodecName)),
		connect.WithCodec(NewCodec(CodecNameCharset)),
	}, opts...)

	mergePeople := connect.NewUnaryHandler(MergeServiceMergePeopleProcedure, svc.MergePeople, opts...)
	previewMerge := connect.NewUnaryHandler(MergeServicePreviewMergeProcedure, svc.PreviewMerge, opts...)
	listMergeAudits := connect.NewUnaryHandler(MergeServiceListMergeAuditsProcedure, svc.ListMergeAudits, opts...)

	return "/" + MergeServiceName + "/", withErrorField(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case MergeServiceMergePeopleProcedure:
			mergePeople.ServeHTTP(w, r)
		case MergeServicePreviewMergeProcedure:
			previewMerge.ServeHTTP(w, r)
		case MergeServiceListMergeAuditsProcedure:
			listMergeAudits.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	}))
}

// MergeServiceClient is a client for MergeService.
type MergeServiceClient struct {
	mergePeople     *connect.Client[MergePeopleRequest, MergePeopleResponse]
	previewMerge    *connect.Client[PreviewMergeRequest, PreviewMergeResponse]
	listMergeAudits *connect.Client[ListMergeAuditsRequest, ListMergeAuditsResponse]
}

// NewMergeServiceClient constructs a client for MergeService at baseURL
// (e.g. http://localhost:8080).
func NewMergeServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *MergeServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
	return &MergeServiceClient{
		mergePeople:     connect.NewClient[MergePeopleRequest, MergePeopleResponse](httpClient, baseURL+MergeServiceMergePeopleProcedure, opts...),
		previewMerge:    connect.NewClient[PreviewMergeRequest, PreviewMergeResponse](httpClient, baseURL+MergeServicePreviewMergeProcedure, opts...),
		listMergeAudits: connect.NewClient[ListMergeAuditsRequest, ListMergeAuditsResponse](httpClient, baseURL+MergeServiceListMergeAuditsProcedure, opts...),
	}
}

func (c *MergeServiceClient) MergePeople(ctx context.Context, req *connect.Request[MergePeopleRequest]) (*connect.Response[MergePeopleResponse], error) {
	return c.mergePeople.CallUnary(ctx, req)
}

func (c *MergeServiceClient) PreviewMerge(ctx context.Context, req *connect.Request[PreviewMergeRequest]) (*connect.Response[PreviewMergeResponse], error) {
	return c.previewMerge.CallUnary(ctx, req)
}

func (c *MergeServiceClient) ListMergeAudits(ctx context.Context, req *connect.Request[ListMergeAuditsRequest]) (*connect.Response[ListMergeAuditsResponse], error) {
	return c.listMergeAudits.CallUnary(ctx, req)
}

// BearerToken returns a client interceptor that sends token on every call.
func BearerToken(token string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if req.Spec().IsClient && token != "" {
				req.Header().Set("Authorization", "Bearer "+token)
			}
			return next(ctx, req)
		}
	}
}
