// Package harness runs query scenarios: a query spec, the document it
// must compile to, and assertions over that document.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: adults_in_benelux
//	description: "Range in must, membership in filter"
//	query:
//	  index: people
//	  where:
//	    - where: {field: age, op: ">=", value: 18}
//	    - in: {field: country, values: [NL, BE]}
//	      filter: true
//	expect:
//	  query:
//	    bool:
//	      must: [{range: {age: {gte: 18}}}]
//	      filter: [{terms: {country: [NL, BE]}}]
//	assertions:
//	  - type: has_path
//	    path: query.bool.filter.0.terms
//
// A scenario either expects a document or, with expect_error, a
// compilation error whose message contains the given text. Documents are
// compared in canonical form, so key order in expect does not matter.
// Golden files, in contrast, hold the compiled document byte for byte.
//
// # Assertion Types
//
//   - has_path: the dotted path resolves in the document
//   - lacks_path: the dotted path does not resolve
//   - path_equals: the value at path equals value (canonical comparison)
//   - hash_equals: the document hash equals value
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/adults.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if !result.Pass {
//	    for _, e := range result.Errors {
//	        log.Println(e)
//	    }
//	}
package harness
