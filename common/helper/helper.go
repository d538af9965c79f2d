package helper

import (
	"fmt"
	"time"

	"github.com/bedrock-gateway/bedrock-assumerole/common/random"
)

const RequestIdKey = "X-Bedrock-Request-Id"

const requestIDTimeLayout = "20060102150405"

// GenRequestID returns a sortable numeric id: the UTC second it was made
// followed by twelve random digits.
func GenRequestID() string {
	return time.Now().UTC().Format(requestIDTimeLayout) + random.GetRandomNumberString(12)
}

func MessageWithRequestId(message string, id string) string {
	if id == "" {
		return message
	}
	return fmt.Sprintf("%s (request id: %s)", message, id)
}
