package guard

// Audit lists the exported controller methods that are neither whitelisted
// nor protected by a permission check.
func Audit(m *Manifest, w Whitelist) []MethodInfo {
	var out []MethodInfo
	for _, info := range m.Methods() {
		if !info.Exported || info.Protected || w.Contains(info.ID()) {
			continue
		}
		out = append(out, info)
	}
	return out
}
