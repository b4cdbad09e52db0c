package checkin

import "lumacheckin/internal/shared/utils/response"

// Result is the body returned by the check-in endpoint
type Result = response.Result
