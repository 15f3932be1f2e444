// Package e2e provides end-to-end tests with a generated corpus and multiple queries.
package e2e

import (
	"fmt"
	"strings"
)

// E2EDocument is a document entry in the E2E corpus.
type E2EDocument struct {
	ID      string
	Title   string
	Content string
}

// Text is the document as it is written to disk: the ID and title on the first
// line so they travel with the content into the chunk.
func (d E2EDocument) Text() string {
	return fmt.Sprintf("[%s] %s. %s", d.ID, d.Title, d.Content)
}

// QueryTestCase defines a query and the document IDs of which at least one
// must appear in the retrieved chunks.
type QueryTestCase struct {
	Query          string
	ExpectedDocIDs []string
	Description    string
}

// Corpus holds documents and query test cases for E2E tests.
type Corpus struct {
	Documents    []E2EDocument
	TestCases    []QueryTestCase
	TotalDocs    int
	TotalQueries int
}

type topic struct {
	title  string
	phrase string
	first  string
	second string
}

// Every topic yields two documents sharing its phrase, so each signature term
// appears in two chunks and survives the default min_df of 2.
var topics = []topic{
	{"ARD Committee Membership", "admission review dismissal committee",
		"The admission review dismissal committee includes the parent, a general education teacher and a special education teacher.",
		"Each admission review dismissal committee decision is documented in the deliberations."},
	{"Parent Participation", "parent participation telephone",
		"Schools must ensure parent participation telephone conference calls are offered when parents cannot attend.",
		"Documented attempts to secure parent participation telephone or video options are required before meeting without them."},
	{"Initial Evaluation Timeline", "initial evaluation timeline",
		"The initial evaluation timeline is forty five school days from receipt of signed consent.",
		"Absences of three or more days extend the initial evaluation timeline accordingly."},
	{"Informed Consent", "written informed consent",
		"Written informed consent must be obtained before the first evaluation is conducted.",
		"Revoking written informed consent ends services but is not retroactive."},
	{"Reevaluation", "triennial reevaluation",
		"A triennial reevaluation occurs at least once every three years unless waived.",
		"The team may determine no additional data are needed for the triennial reevaluation."},
	{"Specific Learning Disability", "specific learning disability dyslexia",
		"Eligibility for specific learning disability dyslexia considers response to scientific intervention.",
		"Reading fluency deficits are common indicators of specific learning disability dyslexia."},
	{"Emotional Disturbance", "emotional disturbance eligibility",
		"Emotional disturbance eligibility requires characteristics exhibited over a long period of time.",
		"Social maladjustment alone does not establish emotional disturbance eligibility."},
	{"Autism Evaluation", "autism spectrum evaluation",
		"An autism spectrum evaluation addresses communication, social interaction and restricted behaviors.",
		"Supplemental strategies follow an autism spectrum evaluation when appropriate."},
	{"Intellectual Disability", "intellectual disability adaptive behavior",
		"Intellectual disability adaptive behavior deficits must co-occur with subaverage general intellectual functioning.",
		"Standardized rating scales measure intellectual disability adaptive behavior across settings."},
	{"Speech Impairment", "speech impairment articulation",
		"A speech impairment articulation disorder adversely affects educational performance.",
		"Licensed pathologists assess speech impairment articulation and fluency."},
	{"Functional Behavioral Assessment", "functional behavioral assessment",
		"A functional behavioral assessment identifies the function that problem behavior serves.",
		"Results of the functional behavioral assessment inform the behavior intervention plan."},
	{"Behavior Intervention Plan", "behavior intervention plan",
		"The behavior intervention plan describes positive supports and replacement skills.",
		"Staff must be trained to implement the behavior intervention plan consistently."},
	{"Manifestation Determination", "manifestation determination review",
		"A manifestation determination review occurs within ten school days of a disciplinary change of placement.",
		"If conduct was caused by the disability the manifestation determination review returns the student to placement."},
	{"Least Restrictive Environment", "least restrictive environment",
		"Students are educated in the least restrictive environment to the maximum extent appropriate.",
		"Removal from regular classes must be justified under least restrictive environment requirements."},
	{"Extended School Year", "extended school year services",
		"Extended school year services prevent severe or substantial regression.",
		"Recoupment data guide decisions about extended school year services."},
	{"Transition Planning", "postsecondary transition planning",
		"Postsecondary transition planning begins no later than age fourteen.",
		"Measurable goals for employment and training anchor postsecondary transition planning."},
	{"Independent Educational Evaluation", "independent educational evaluation",
		"Parents may request an independent educational evaluation at public expense.",
		"The district either funds the independent educational evaluation or files for due process."},
	{"Prior Written Notice", "prior written notice",
		"Prior written notice must be given five school days before proposed actions.",
		"Content of prior written notice explains the reasons and options considered."},
	{"Procedural Safeguards", "procedural safeguards notice",
		"The procedural safeguards notice is provided once each school year.",
		"Copies of the procedural safeguards notice are also given upon first referral."},
	{"Due Process Hearing", "due process hearing",
		"A due process hearing request must be filed within one year in this state.",
		"Hearing officers issue a decision after the due process hearing concludes."},
	{"Mediation", "voluntary mediation",
		"Voluntary mediation is available to resolve disputes at no cost to parents.",
		"Agreements reached in voluntary mediation are legally binding."},
	{"Section 504", "Section 504 accommodations",
		"Section 504 accommodations ensure equal access for students with impairments.",
		"A committee reviews Section 504 accommodations at least annually."},
	{"Dyslexia Services", "dyslexia instruction program",
		"A dyslexia instruction program uses multisensory structured literacy.",
		"Progress in the dyslexia instruction program is reported to parents each grading period."},
	{"Confidentiality of Records", "education records confidentiality",
		"Education records confidentiality is protected under federal privacy law.",
		"Access logs support education records confidentiality audits."},
	{"Assistive Technology", "assistive technology devices",
		"Assistive technology devices must be considered for every student.",
		"Training for staff on assistive technology devices is a related service."},
	{"Related Services", "counseling related services",
		"Counseling related services may be provided by school psychologists.",
		"Frequency and duration of counseling related services appear in the schedule."},
	{"Child Find", "child find obligation",
		"The child find obligation requires locating and evaluating children with suspected disabilities.",
		"Private school students fall under the child find obligation of the district where the school is located."},
	{"Response to Intervention", "response to intervention tiers",
		"Response to intervention tiers provide increasingly intensive support.",
		"Data from response to intervention tiers may not delay a requested evaluation."},
	{"Restraint and Time-out", "restraint time-out reporting",
		"Restraint time-out reporting requires written notice to parents the same day.",
		"Annual training covers restraint time-out reporting procedures."},
	{"Graduation Requirements", "graduation individualized requirements",
		"Committees may set graduation individualized requirements through the personal graduation plan.",
		"Meeting graduation individualized requirements ends eligibility for services."},
}

// BuildCorpus returns two documents per topic and one query per topic.
func BuildCorpus() *Corpus {
	docs := buildDocuments()
	cases := buildQueryTestCases(docs)
	return &Corpus{
		Documents:    docs,
		TestCases:    cases,
		TotalDocs:    len(docs),
		TotalQueries: len(cases),
	}
}

// buildDocuments numbers every first part before every second part, so the two
// parts of a topic are never neighbours on disk and never share a chunk.
func buildDocuments() []E2EDocument {
	out := make([]E2EDocument, 0, 2*len(topics))
	for j := 0; j < 2; j++ {
		for i, t := range topics {
			content := t.first
			if j == 1 {
				content = t.second
			}
			out = append(out, E2EDocument{
				ID:      fmt.Sprintf("e2e-doc-%03d", j*len(topics)+i+1),
				Title:   fmt.Sprintf("%s (part %d)", t.title, j+1),
				Content: content,
			})
		}
	}
	return out
}

func buildQueryTestCases(docs []E2EDocument) []QueryTestCase {
	cases := make([]QueryTestCase, 0, len(topics))
	for _, t := range topics {
		var ids []string
		for _, d := range docs {
			if containsPhrase(d, t.phrase) {
				ids = append(ids, d.ID)
			}
		}
		cases = append(cases, QueryTestCase{
			Query:          t.phrase,
			ExpectedDocIDs: ids,
			Description:    fmt.Sprintf("query %q should return one of %v", t.phrase, ids),
		})
	}
	return cases
}

func containsPhrase(d E2EDocument, phrase string) bool {
	p := strings.ToLower(phrase)
	return strings.Contains(strings.ToLower(d.Title), p) || strings.Contains(strings.ToLower(d.Content), p)
}

// DocIDsIn returns the IDs of corpus documents whose text appears in chunk.
func (c *Corpus) DocIDsIn(chunk string) []string {
	var ids []string
	for _, d := range c.Documents {
		if strings.Contains(chunk, "["+d.ID+"]") {
			ids = append(ids, d.ID)
		}
	}
	return ids
}
