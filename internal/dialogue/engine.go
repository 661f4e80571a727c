package dialogue

import (
	"context"

	"github.com/google/uuid"
)

// Engine 对话协作方的最小接口
//
// 本服务只负责开启会话拿到引用并带着开场上下文交出去，对话内容
// 由外部引擎生成，这里不做任何 NLU。
type Engine interface {
	// OpenConversation 开启一次会话，返回会话引用
	OpenConversation(ctx context.Context, userID int64, checkInType string) (string, error)
}

// localEngine 本地铸引用实现，未接入外部引擎时顶位
//
// 引用只要求全局唯一且可被外部系统原样带回，本地 uuid 即可满足。
type localEngine struct{}

func (localEngine) OpenConversation(ctx context.Context, userID int64, checkInType string) (string, error) {
	return "conv_" + uuid.NewString(), nil
}

var engine Engine = localEngine{}

// SetEngine 注入外部对话引擎（进程启动时调用，之后不再更换）
func SetEngine(e Engine) {
	if e != nil {
		engine = e
	}
}

// Default 返回当前对话引擎
func Default() Engine {
	return engine
}
