package kafka

import (
	"testing"

	"github.com/xdg-go/scram"
)

func TestSCRAMClient_Conversation(t *testing.T) {
	tests := []struct {
		name     string
		hashGen  scram.HashGeneratorFcn
		password string
		wantOK   bool
	}{
		{name: "SCRAM-SHA-256", hashGen: scram.SHA256, password: "pencil", wantOK: true},
		{name: "SCRAM-SHA-512", hashGen: scram.SHA512, password: "pencil", wantOK: true},
		{name: "wrong password", hashGen: scram.SHA256, password: "crayon", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newSCRAMServer(t, tt.hashGen, "user", "pencil")
			serverConv := server.NewConversation()

			client := &scramClient{hashGen: tt.hashGen}
			if err := client.Begin("user", tt.password, ""); err != nil {
				t.Fatalf("Begin() error = %v", err)
			}

			challenge := ""
			for i := 0; i < 4 && !client.Done(); i++ {
				resp, err := client.Step(challenge)
				if err != nil {
					if tt.wantOK {
						t.Fatalf("client Step() error = %v", err)
					}
					return
				}
				if client.Done() {
					break
				}
				challenge, err = serverConv.Step(resp)
				if err != nil {
					if tt.wantOK {
						t.Fatalf("server Step() error = %v", err)
					}
					return
				}
			}

			if !tt.wantOK {
				t.Fatal("conversation with wrong password should fail")
			}
			if !client.Done() {
				t.Error("client conversation should be done")
			}
			if !serverConv.Valid() {
				t.Error("server should accept the client proof")
			}
		})
	}
}

func TestSCRAMClient_BeginInvalidUser(t *testing.T) {
	client := &scramClient{hashGen: scram.SHA256}
	// SASLprep rejects prohibited control characters
	if err := client.Begin("user\u0007", "pencil", ""); err == nil {
		t.Error("Begin() should reject a username with control characters")
	}
}

func TestSCRAMClientGenerator(t *testing.T) {
	tests := []struct {
		mechanism string
		wantHash  scram.HashGeneratorFcn
	}{
		{MechanismSCRAMSHA256, scram.SHA256},
		{MechanismSCRAMSHA512, scram.SHA512},
	}

	for _, tt := range tests {
		t.Run(tt.mechanism, func(t *testing.T) {
			generate := scramClientGenerator(tt.mechanism)
			first, second := generate(), generate()
			if first == second {
				t.Error("generator should return a fresh client per connection")
			}
			if first.Done() {
				t.Error("a new client should not be done before Begin")
			}

			// A conversation against a server of the expected hash succeeds.
			server := newSCRAMServer(t, tt.wantHash, "user", "pencil").NewConversation()
			if err := first.Begin("user", "pencil", ""); err != nil {
				t.Fatalf("Begin() error = %v", err)
			}
			clientFirst, err := first.Step("")
			if err != nil {
				t.Fatalf("Step() error = %v", err)
			}
			serverFirst, err := server.Step(clientFirst)
			if err != nil {
				t.Fatalf("server Step() error = %v", err)
			}
			clientFinal, err := first.Step(serverFirst)
			if err != nil {
				t.Fatalf("Step() error = %v", err)
			}
			serverFinal, err := server.Step(clientFinal)
			if err != nil {
				t.Fatalf("server Step() error = %v", err)
			}
			if _, err := first.Step(serverFinal); err != nil {
				t.Fatalf("final Step() error = %v", err)
			}
			if !first.Done() || !server.Valid() {
				t.Error("conversation should complete with a valid proof")
			}
		})
	}
}

func newSCRAMServer(t *testing.T, hashGen scram.HashGeneratorFcn, user, password string) *scram.Server {
	t.Helper()

	c, err := hashGen.NewClient(user, password, "")
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	creds := c.GetStoredCredentials(scram.KeyFactors{Salt: "QSXCR+Q6sek8bf92", Iters: 4096})

	server, err := hashGen.NewServer(func(string) (scram.StoredCredentials, error) {
		return creds, nil
	})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	return server
}
