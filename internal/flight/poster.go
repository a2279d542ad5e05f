package flight

import "github.com/tiiuae/patternflight/internal/types"

type poster struct {
	post types.PostFn
	from string
}

func (p poster) emit(messageType string, message interface{}) {
	if p.post == nil {
		return
	}
	p.post(types.CreateMessage(messageType, p.from, p.from, message))
}
