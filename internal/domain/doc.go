// Package domain models IPUMS USA person-level microdata and the PUMA
// boundary data it is mapped onto.
//
// # Data Source
//
// Microdata comes from an IPUMS USA extract of the American Community Survey
// (https://usa.ipums.org), downloaded as a fixed-width ASCII .dat file. Each
// line is one person record. The extract must include STATEFIP, PUMA, PERWT,
// WKSWORK1, UHRSWORK and INCWAGE; their byte positions are pinned in
// [MicrodataLayout] and must match the codebook of the extract.
//
// Boundaries come from the Census TIGER/Line PUMA shapefiles
// (https://www2.census.gov/geo/tiger/TIGER2022/PUMA20/) or a GeoJSON export
// of them.
//
// # Field Conventions
//
//	STATEFIP   2-digit state FIPS code, e.g. 06 = California.
//	PUMA       5-digit PUMA code, unique only within a state.
//	PERWT      person weight; how many people the record represents.
//	WKSWORK1   weeks worked last year, 0-52.
//	UHRSWORK   usual hours worked per week, 0-99.
//	INCWAGE    wage and salary income last year, in dollars.
//
// Blank or non-numeric fields are missing values, never errors. A record
// contributes to a wage estimate only when weeks, hours and income are all
// positive; zero means "did not work" or "not in universe".
//
// # GEOID
//
// A PUMA is identified nationally by its GEOID: the state code padded to two
// digits followed by the PUMA code padded to five, e.g. state 6 and PUMA 123
// give "0600123". TIGER/Line files carry the same key in GEOID20 (2020
// vintage) or GEOID10 (2010 vintage). GEOIDs are always handled as text so
// leading zeros survive every hop.
//
// # Weighting
//
// The per-area statistic is the PERWT-weighted arithmetic mean of the
// per-person hourly wage INCWAGE / (UHRSWORK * WKSWORK1). An area whose
// weights sum to zero has no defined mean and fails aggregation with
// [ErrZeroWeight].
package domain
