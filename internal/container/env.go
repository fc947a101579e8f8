package container

const defaultPath = "PATH=/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"

// ProcessEnv computes the stage-0 environment (§6 "Environment variable
// handling"): unless keep_env, reset to a single PATH entry; then
// overlay SetEnv directives and remove UnsetEnv directives. env is the
// caller-provided process environment, only consulted when keep_env is
// set.
func ProcessEnv(r *Request, env []EnvPair) []EnvPair {
	m := map[string]string{}
	order := []string{}

	set := func(k, v string) {
		if _, ok := m[k]; !ok {
			order = append(order, k)
		}
		m[k] = v
	}
	unset := func(k string) {
		if _, ok := m[k]; ok {
			delete(m, k)
			for i, key := range order {
				if key == k {
					order = append(order[:i], order[i+1:]...)
					break
				}
			}
		}
	}

	if r.KeepEnv {
		for _, kv := range env {
			set(kv.Key, kv.Value)
		}
	} else {
		k, v := splitEnv(defaultPath)
		set(k, v)
	}

	for _, opt := range r.Options {
		switch opt.Kind {
		case KindSetEnv:
			set(opt.Key, opt.Value)
		case KindUnsetEnv:
			unset(opt.Key)
		}
	}

	out := make([]EnvPair, 0, len(order))
	for _, k := range order {
		out = append(out, EnvPair{Key: k, Value: m[k]})
	}
	return out
}

func splitEnv(kv string) (string, string) {
	for i := 0; i < len(kv); i++ {
		if kv[i] == '=' {
			return kv[:i], kv[i+1:]
		}
	}
	return kv, ""
}
