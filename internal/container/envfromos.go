package container

import "strings"

// EnvFromOS converts os.Environ()'s "k=v" slice into the ordered
// EnvPair sequence ProcessEnv expects, preserving the process's own
// ordering (§6 "Environment variable handling" consults this only when
// keep_env is set).
func EnvFromOS(environ []string) []EnvPair {
	out := make([]EnvPair, 0, len(environ))
	for _, kv := range environ {
		k, v := splitEnvOS(kv)
		out = append(out, EnvPair{Key: k, Value: v})
	}
	return out
}

func splitEnvOS(kv string) (string, string) {
	if i := strings.IndexByte(kv, '='); i >= 0 {
		return kv[:i], kv[i+1:]
	}
	return kv, ""
}
