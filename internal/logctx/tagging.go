package logctx

import (
	"context"
	"slices"

	"packetlog/internal/global"
)

// Tags name the component an event comes from, outermost first: Agent, File, Messenger.
// A stored list is never changed in place, every derived context carries its own copy.

// Adds tag below the component path of ctx
func AppendCtxTag(ctx context.Context, tag string) (newCtx context.Context) {
	path := GetTagList(ctx)
	newCtx = context.WithValue(ctx, global.LogTagsKey, append(path, tag))
	return
}

// Replaces the component path of ctx, usually with the namespace of the component owning ctx
func OverwriteCtxTag(ctx context.Context, namespace []string) (newCtx context.Context) {
	newCtx = context.WithValue(ctx, global.LogTagsKey, slices.Clone(namespace))
	return
}

// Returns a copy of the component path of ctx, empty when none was set
func GetTagList(ctx context.Context) (tags []string) {
	tags = slices.Clone(storedTags(ctx))
	if tags == nil {
		tags = []string{}
	}
	return
}

// Stored list without copying, callers must not modify it
func storedTags(ctx context.Context) (tags []string) {
	tags, _ = ctx.Value(global.LogTagsKey).([]string)
	return
}
