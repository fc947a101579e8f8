package container

import "strconv"

// BindPlaceholder returns the stable numeric placeholder path assigned
// to the i-th Bind/DevBind/RoBind directive in source order (§3
// invariants): "/container_bind_<i>".
func BindPlaceholder(i uint64) string {
	return "/container_bind_" + strconv.FormatUint(i, 10)
}

// CleanupAfterStage0 mutates r in place to match the scrubbing
// invariant that must hold for every RunnerMessage transported out of
// stage 0 (§3, §8 property 2): keep_env is cleared, base_image is
// unset, and every Bind/DevBind/RoBind src is replaced by the
// placeholder path the parent already bound at that index. Mirrors
// cleanup_container in isolation.rs.
func CleanupAfterStage0(r *Request) {
	r.KeepEnv = false
	r.BaseImage = ""
	r.HasBaseImage = false

	var bindIndex uint64
	out := r.Options[:0]
	for _, opt := range r.Options {
		switch opt.Kind {
		case KindSetEnv, KindUnsetEnv:
			// Dropped: env directives are already applied into Env
			// before stage 0 hands off (process_env in isolation.rs).
			continue
		case KindBind, KindDevBind, KindRoBind:
			opt.Src = BindPlaceholder(bindIndex)
			bindIndex++
			out = append(out, opt)
		default: // Symlink, Dir
			out = append(out, opt)
		}
	}
	r.Options = out
}

// ClearNftRules empties net_nft_rules, the scrub applied to the
// RunnerMessage transported out of stage 4 once the rules have been
// loaded by the stage-4 nft helper (§3 invariants, §8 property 2).
func ClearNftRules(r *Request) {
	r.NetNftRules = nil
}

// ForMounting returns the Request that Mounting hands to Exec: every
// field dropped except unshare_user, command_before_unshare_user, and
// command (§3 "Lifecycle", §8 property 2).
func ForMounting(r *Request) *Request {
	return &Request{
		UnshareUser:              r.UnshareUser,
		CommandBeforeUnshareUser: append([]string(nil), r.CommandBeforeUnshareUser...),
		Command:                  append([]string(nil), r.Command...),
	}
}
