package builder

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/testing/protocmp"
)

func TestBuildRequestRoundTrip(t *testing.T) {
	want := &BuildRequest{
		Cookie:     "c00kie",
		Source:     "hello",
		Version:    "1.0-1",
		Files:      []string{"hello_1.0-1.dsc", "hello_1.0.orig.tar.gz"},
		Chroot:     "oracular-amd64",
		ArchiveUrl: "http://localhost/primary",
		Arch:       "amd64",
		Suite:      "oracular",
		ArchIndep:  true,
	}
	b, err := proto.Marshal(want)
	if err != nil {
		t.Fatal(err)
	}
	got := new(BuildRequest)
	if err := proto.Unmarshal(b, got); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got, protocmp.Transform()); diff != "" {
		t.Errorf("BuildRequest: diff (-want +got):\n%s", diff)
	}
}

func TestWireFormat(t *testing.T) {
	for _, tt := range []struct {
		desc string
		msg  proto.Message
		want []byte
	}{
		{"retrieve path", &RetrieveRequest{Path: "x"}, []byte{0x0a, 0x01, 'x'}},
		{"arch indep", &BuildRequest{ArchIndep: true}, []byte{0x48, 0x01}},
		{"chunk data", &Chunk{Chunk: []byte{0xff}}, []byte{0x12, 0x01, 0xff}},
		{"dependencies", &StatusResponse{Dependencies: "a"}, []byte{0x3a, 0x01, 'a'}},
	} {
		t.Run(tt.desc, func(t *testing.T) {
			got, err := proto.Marshal(tt.msg)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Marshal: diff (-want +got):\n%s", diff)
			}
		})
	}
}

func TestServiceDescriptor(t *testing.T) {
	sd := File_builder_proto.Services().ByName("Builder")
	if sd == nil {
		t.Fatal("service Builder not found")
	}
	if got, want := string(sd.FullName()), serviceName; got != want {
		t.Errorf("FullName = %q, want %q", got, want)
	}
	var methods []string
	for i := 0; i < sd.Methods().Len(); i++ {
		methods = append(methods, string(sd.Methods().Get(i).Name()))
	}
	want := []string{"Status", "Store", "Build", "Retrieve", "Abort", "Clean"}
	if diff := cmp.Diff(want, methods); diff != "" {
		t.Errorf("methods: diff (-want +got):\n%s", diff)
	}
}
