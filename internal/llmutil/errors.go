package llmutil

import "errors"

var errMissingBaseURL = errors.New("custom provider requires llm.base_url")
