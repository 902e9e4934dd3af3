package valkey

import (
	"encoding/json"
	"fmt"
	"os"
	"testing"

	"github.com/GreenledgerHQ/cerberus/lib/store/storetest"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestImpl(t *testing.T) {
	if os.Getenv("DONT_USE_NETWORK") != "" {
		t.Skip("test requires network egress")
		return
	}

	testcontainers.SkipIfProviderIsNotHealthy(t)

	req := testcontainers.ContainerRequest{
		Image:      "valkey/valkey:8",
		WaitingFor: wait.ForLog("Ready to accept connections"),
	}
	valkeyC, err := testcontainers.GenericContainer(t.Context(), testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	testcontainers.CleanupContainer(t, valkeyC)
	if err != nil {
		t.Fatal(err)
	}

	containerIP, err := valkeyC.ContainerIP(t.Context())
	if err != nil {
		t.Fatal(err)
	}

	data, err := json.Marshal(Config{
		URL: fmt.Sprintf("redis://%s:6379/0", containerIP),
	})
	if err != nil {
		t.Fatal(err)
	}

	storetest.Common(t, Factory{}, json.RawMessage(data))
}

func TestFactoryValid(t *testing.T) {
	f := Factory{}

	for _, tt := range []struct {
		name  string
		input Config
		ok    bool
	}{
		{name: "empty", input: Config{}},
		{name: "garbage URL", input: Config{URL: "not-a-url"}},
		{name: "redis URL", input: Config{URL: "redis://valkey:6379/0"}, ok: true},
	} {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.input)
			if err != nil {
				t.Fatal(err)
			}

			err = f.Valid(json.RawMessage(data))
			if tt.ok && err != nil {
				t.Errorf("wanted valid config, got: %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("wanted invalid config to be rejected")
			}
		})
	}
}
