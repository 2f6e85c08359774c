package compiler

import "fmt"

// PartitionOverlapError reports that more than one group of a partition
// matches the same region of attribute space.
type PartitionOverlapError struct {
	Labels []string
}

func (e *PartitionOverlapError) Error() string {
	return fmt.Sprintf("compiler: partition groups overlap: %v all match the same region", e.Labels)
}

// OverlappingBundlesError reports that more than one bundle (or an
// unmatched pair of Elsewhere bundles) claims the same source/target/filter
// region.
type OverlappingBundlesError struct {
	BundleIDs []string
}

func (e *OverlappingBundlesError) Error() string {
	return fmt.Sprintf("compiler: bundles %v overlap for the same rows", e.BundleIDs)
}

// MissingDimensionTableError reports a query-string process group
// selection with no process dimension table supplied to resolve it.
type MissingDimensionTableError struct {
	Query string
}

func (e *MissingDimensionTableError) Error() string {
	return fmt.Sprintf("compiler: cannot compile query string selection %q without a process dimension table", e.Query)
}
