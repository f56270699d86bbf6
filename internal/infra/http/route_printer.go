package http

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
)

// RouteInfo holds information about a registered route.
type RouteInfo struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

// RouteFilters contains filter options for route listing.
type RouteFilters struct {
	Method string
	Path   string
}

// CollectRoutes walks the router and returns its routes sorted by path, then
// method.
func CollectRoutes(router Router) []RouteInfo {
	var routes []RouteInfo
	_ = router.Walk(func(method, path string) error {
		routes = append(routes, RouteInfo{Method: method, Path: path})
		return nil
	})
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	return routes
}

// PrintRoutes writes routes as a table, JSON or one "METHOD path" per line.
func PrintRoutes(w io.Writer, routes []RouteInfo, format string, filters RouteFilters) error {
	routes = filterRoutes(routes, filters)

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(routes)
	case "simple":
		for _, r := range routes {
			if _, err := fmt.Fprintf(w, "%s %s\n", r.Method, r.Path); err != nil {
				return err
			}
		}
		return nil
	default:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "METHOD\tPATH")
		for _, r := range routes {
			fmt.Fprintf(tw, "%s\t%s\n", r.Method, r.Path)
		}
		fmt.Fprintf(tw, "\n%d routes\n", len(routes))
		return tw.Flush()
	}
}

func filterRoutes(routes []RouteInfo, filters RouteFilters) []RouteInfo {
	if filters.Method == "" && filters.Path == "" {
		return routes
	}

	filtered := make([]RouteInfo, 0, len(routes))
	for _, r := range routes {
		if filters.Method != "" && !strings.EqualFold(r.Method, filters.Method) {
			continue
		}
		if filters.Path != "" && !strings.Contains(r.Path, filters.Path) {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}
