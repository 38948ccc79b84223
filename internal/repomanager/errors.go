package repomanager

import "errors"

var ErrInvalidRepoName = errors.New("invalid repository name")
