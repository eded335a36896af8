package kafka

import (
	"fmt"

	"github.com/IBM/sarama"
	"github.com/xdg-go/scram"
)

var _ sarama.SCRAMClient = (*scramClient)(nil)

// scramClient drives one SCRAM exchange for sarama.
type scramClient struct {
	hashGen      scram.HashGeneratorFcn
	conversation *scram.ClientConversation
}

func (c *scramClient) Begin(userName, password, authzID string) error {
	client, err := c.hashGen.NewClient(userName, password, authzID)
	if err != nil {
		return fmt.Errorf("failed to create scram client: %w", err)
	}
	c.conversation = client.NewConversation()
	return nil
}

func (c *scramClient) Step(challenge string) (string, error) {
	return c.conversation.Step(challenge)
}

func (c *scramClient) Done() bool {
	return c.conversation != nil && c.conversation.Done()
}

// scramClientGenerator returns the sarama client factory for a SCRAM
// mechanism. Every broker connection gets a fresh conversation.
func scramClientGenerator(mechanism string) func() sarama.SCRAMClient {
	hashGen := scram.SHA512
	if mechanism == MechanismSCRAMSHA256 {
		hashGen = scram.SHA256
	}
	return func() sarama.SCRAMClient {
		return &scramClient{hashGen: hashGen}
	}
}
