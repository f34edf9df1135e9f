package worker

import (
	"fmt"
	"os"

	"github.com/google/uuid"
)

// NewHolderID returns a claim holder token unique to this process:
// the instance name (or hostname) followed by a random suffix.
func NewHolderID(instanceName string) string {
	name := instanceName
	if name == "" {
		host, err := os.Hostname()
		if err != nil || host == "" {
			host = "worker"
		}
		name = host
	}
	return fmt.Sprintf("%s-%s", name, uuid.NewString()[:8])
}
