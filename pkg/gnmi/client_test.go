package gnmi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"

	gnmipb "github.com/openconfig/gnmi/proto/gnmi"
	"github.com/tidwall/gjson"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/newtron-network/newtgrade/pkg/util"
)

type fakeGNMI struct {
	gnmipb.UnimplementedGNMIServer

	val    []byte
	setErr error

	gotGet *gnmipb.GetRequest
	gotSet *gnmipb.SetRequest
	gotMD  metadata.MD
}

func (f *fakeGNMI) Get(ctx context.Context, req *gnmipb.GetRequest) (*gnmipb.GetResponse, error) {
	f.gotGet = req
	f.gotMD, _ = metadata.FromIncomingContext(ctx)
	return &gnmipb.GetResponse{
		Notification: []*gnmipb.Notification{{
			Timestamp: 1700000000000000000,
			Update: []*gnmipb.Update{{
				Path: req.GetPath()[0],
				Val:  &gnmipb.TypedValue{Value: &gnmipb.TypedValue_JsonIetfVal{JsonIetfVal: f.val}},
			}},
		}},
	}, nil
}

func (f *fakeGNMI) Set(ctx context.Context, req *gnmipb.SetRequest) (*gnmipb.SetResponse, error) {
	f.gotSet = req
	if f.setErr != nil {
		return nil, f.setErr
	}
	return &gnmipb.SetResponse{Timestamp: 1700000000000000000}, nil
}

func newTestClient(t *testing.T, fake *fakeGNMI) *Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	gnmipb.RegisterGNMIServer(srv, fake)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	c, err := Dial(context.Background(), Config{
		Target:   "leaf1",
		Username: "admin",
		Password: "secret",
		Insecure: true,
		DialOptions: []grpc.DialOption{
			grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
				return lis.DialContext(ctx)
			}),
		},
	})
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestClient_Get(t *testing.T) {
	fake := &fakeGNMI{val: []byte(`{"srl_nokia-system-info:version":"v23.10.1"}`)}
	c := newTestClient(t, fake)

	resp, err := c.Get(context.Background(), "/system/information/version")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if fake.gotGet.GetEncoding() != gnmipb.Encoding_JSON_IETF {
		t.Errorf("encoding = %v, want JSON_IETF", fake.gotGet.GetEncoding())
	}
	if got := fake.gotMD.Get("username"); len(got) != 1 || got[0] != "admin" {
		t.Errorf("username metadata = %v", got)
	}
	if got := gjson.GetBytes(resp, "notification.0.update.0.val.srl_nokia-system-info:version").String(); got != "v23.10.1" {
		t.Errorf("val = %q, doc = %s", got, resp)
	}
	if got := gjson.GetBytes(resp, "notification.0.update.0.path").String(); got != "/system/information/version" {
		t.Errorf("path = %q", got)
	}
}

func TestClient_SetApplied(t *testing.T) {
	fake := &fakeGNMI{}
	c := newTestClient(t, fake)

	ack, err := c.Set(context.Background(), InterfacePath("ethernet1/5"), AdminState(false))
	if err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if !ack.Applied() {
		t.Errorf("Outcome = %s, want applied", ack.Outcome)
	}

	upd := fake.gotSet.GetUpdate()
	if len(upd) != 1 {
		t.Fatalf("updates = %d, want 1", len(upd))
	}
	var body map[string]string
	if err := json.Unmarshal(upd[0].GetVal().GetJsonIetfVal(), &body); err != nil {
		t.Fatal(err)
	}
	if body["admin-state"] != "disable" {
		t.Errorf("body = %v", body)
	}
	elems := upd[0].GetPath().GetElem()
	if len(elems) != 1 || elems[0].GetName() != "interface" || elems[0].GetKey()["name"] != "ethernet1/5" {
		t.Errorf("path = %v", upd[0].GetPath())
	}
}

func TestClient_SetRejected(t *testing.T) {
	fake := &fakeGNMI{setErr: status.Error(codes.InvalidArgument, "unknown element")}
	c := newTestClient(t, fake)

	ack, err := c.Set(context.Background(), MaintenanceModePath(DefaultMaintenanceGroup), AdminState(true))
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, util.ErrGateway) {
		t.Errorf("error = %v, want gateway error", err)
	}
	if ack.Outcome != OutcomeRejected {
		t.Errorf("Outcome = %s, want rejected", ack.Outcome)
	}
}

func TestClassifySetError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Outcome
	}{
		{"nil", nil, OutcomeApplied},
		{"invalid argument", status.Error(codes.InvalidArgument, "bad"), OutcomeRejected},
		{"permission denied", status.Error(codes.PermissionDenied, "no"), OutcomeRejected},
		{"deadline", status.Error(codes.DeadlineExceeded, "slow"), OutcomeUnknown},
		{"unavailable", status.Error(codes.Unavailable, "gone"), OutcomeUnknown},
		{"context", context.DeadlineExceeded, OutcomeUnknown},
		{"plain", errors.New("boom"), OutcomeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifySetError(tt.err); got != tt.want {
				t.Errorf("ClassifySetError() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParsePath(t *testing.T) {
	p, err := ParsePath("/network-instance[name=default]/interface/")
	if err != nil {
		t.Fatalf("ParsePath() error = %v", err)
	}
	elems := p.GetElem()
	if len(elems) != 2 {
		t.Fatalf("elems = %v", elems)
	}
	if elems[0].GetName() != "network-instance" || elems[0].GetKey()["name"] != "default" {
		t.Errorf("elem[0] = %v", elems[0])
	}
	if elems[1].GetName() != "interface" {
		t.Errorf("elem[1] = %v", elems[1])
	}
}

func TestEncodeGetResponse_ScalarValues(t *testing.T) {
	resp := &gnmipb.GetResponse{
		Notification: []*gnmipb.Notification{{
			Update: []*gnmipb.Update{
				{Path: &gnmipb.Path{Elem: []*gnmipb.PathElem{{Name: "a"}}}, Val: &gnmipb.TypedValue{Value: &gnmipb.TypedValue_StringVal{StringVal: "v22.11.2"}}},
				{Path: &gnmipb.Path{Elem: []*gnmipb.PathElem{{Name: "b"}}}, Val: &gnmipb.TypedValue{Value: &gnmipb.TypedValue_UintVal{UintVal: 7}}},
			},
		}},
	}
	doc, err := EncodeGetResponse(resp)
	if err != nil {
		t.Fatal(err)
	}
	if got := gjson.GetBytes(doc, "notification.0.update.0.val").String(); got != "v22.11.2" {
		t.Errorf("string val = %q", got)
	}
	if got := gjson.GetBytes(doc, "notification.0.update.1.val").Int(); got != 7 {
		t.Errorf("uint val = %d", got)
	}
}

func TestEncodeGetResponse_InvalidJSON(t *testing.T) {
	resp := &gnmipb.GetResponse{
		Notification: []*gnmipb.Notification{{
			Update: []*gnmipb.Update{{
				Path: &gnmipb.Path{Elem: []*gnmipb.PathElem{{Name: "a"}}},
				Val:  &gnmipb.TypedValue{Value: &gnmipb.TypedValue_JsonIetfVal{JsonIetfVal: []byte("{not json")}},
			}},
		}},
	}
	if _, err := EncodeGetResponse(resp); err == nil {
		t.Error("expected error for invalid JSON value")
	}
}

func TestPaths(t *testing.T) {
	if got := InterfacePath("ethernet1/1"); got != "/interface[name=ethernet1/1]" {
		t.Errorf("InterfacePath = %q", got)
	}
	if got := MaintenanceModePath("ebgp-ipv4-maintenance"); got != "/system/maintenance/group[name=ebgp-ipv4-maintenance]/maintenance-mode" {
		t.Errorf("MaintenanceModePath = %q", got)
	}
	if AdminState(true)["admin-state"] != "enable" || AdminState(false)["admin-state"] != "disable" {
		t.Error("AdminState values")
	}
}
