package credit

/*
  - Represents the credit metadata attached to the root of a crate: what it is,
    who worked on it, what it is about, and under which terms it is published.

The license may be supplied as an SPDX license URL (https://spdx.org/licenses/)
or as a link to the licensing information for the crate.

Required fields are:
- title
- description
- license
*/
type CreditMetadata struct {
	/*
	 * Title of the crate.
	 */
	Title string `json:"title"`
	/*
	 * A brief description or abstract for the crate.
	 */
	Description string `json:"description"`
	/*
	 * Usage license for the crate's metadata.
	 */
	License License `json:"license"`
	/*
	 * Relevant lifecycle events for the crate. A "published" event supplies the
	 * root dataset's datePublished.
	 */
	Dates []EventDate `json:"dates"`
	/*
	 * Organizations that collected, processed, or sequenced material described
	 * by the crate.
	 */
	Contributors []Organization `json:"contributors"`
	/*
	 * Species the crate is about.
	 */
	Species []Species `json:"species"`
	/*
	 * Other resolvable persistent unique IDs for the crate (e.g. BioProjects).
	 */
	RelatedIdentifiers []PermanentID `json:"related_identifiers"`
}

/*
  - Represents an event in the lifecycle of a resource and the date it occurred on.

See https://support.datacite.org/docs/datacite-metadata-schema-v44-recommended-and-optional-properties#8-date for more information on the events.
*/
type EventDate struct {
	/*
	 * The date associated with the event. The date may be in the format YYYY, YYYY-MM, or YYYY-MM-DD.
	 */
	Date string `json:"date"`
	/*
	 * The nature of the resource-related event that occurred on that date.
	 */
	Event string `json:"event"`
}

/*
 * License information for the resource.
 */
type License struct {
	/*
	 * URL identifying the license, preferably from the SPDX license list at https://spdx.org/licenses/.
	 */
	Id string `json:"id"`
	/*
	 * Full name of the license.
	 */
	Name string `json:"name"`
	/*
	 * URL for the license text.
	 */
	Url string `json:"url"`
}

/*
  - Represents an organization.

Organizations are identified by their Research Organization Registry IDs
(https://ror.org), and located at a GeoNames place (https://www.geonames.org).
*/
type Organization struct {
	/*
	 * ROR URL for the organization
	 */
	OrganizationId string `json:"organization_id"`
	/*
	 * Common name of the organization; use the name recommended by ROR if possible.
	 */
	OrganizationName string `json:"organization_name"`
	/*
	 * Home page of the organization.
	 */
	Url string `json:"url"`
	/*
	 * Where the organization is located.
	 */
	Location Place `json:"location"`
}

/*
 * Represents a place, identified by its GeoNames URL.
 */
type Place struct {
	PlaceId string `json:"place_id"`
	Name    string `json:"name"`
}

/*
 * Represents a species, identified by its NCBI and/or BOLD taxonomy IDs.
 */
type Species struct {
	/*
	 * The scientific name of the species.
	 */
	ScientificName string `json:"scientific_name"`
	/*
	 * NCBI taxonomy ID
	 */
	TaxonId string `json:"taxon_id"`
	/*
	 * BOLD taxonomy ID
	 */
	BoldTaxonId string `json:"bold_taxon_id"`
	/*
	 * URLs of equivalent taxon pages elsewhere.
	 */
	SameAs []string `json:"same_as"`
}

/*
  - Represents a persistent unique identifier for an entity.

The 'id' field is required; it may be an accession with a registry prefix
(e.g. ena.embl:PRJEB65679) or a URL.
*/
type PermanentID struct {
	/*
	 * Persistent unique ID for an entity.
	 */
	Id string `json:"id"`
	/*
	 * Description of that entity.
	 */
	Description string `json:"description"`
}

// well-known organizations of the Biodiversity Genomics Europe consortium
var (
	WellcomeSangerInstitute = Organization{
		OrganizationId:   "https://ror.org/05cy4wa09",
		OrganizationName: "Wellcome Sanger Institute",
		Url:              "https://www.sanger.ac.uk",
		Location: Place{
			PlaceId: "https://www.geonames.org/2653941",
			Name:    "Cambridge, UK",
		},
	}
	NaturalisBiodiversityCenter = Organization{
		OrganizationId:   "https://ror.org/0566bfb96",
		OrganizationName: "Naturalis Biodiversity Center",
		Url:              "https://www.naturalis.nl",
		Location: Place{
			PlaceId: "https://www.geonames.org/2751773",
			Name:    "Leiden, NL",
		},
	}
	NaturalHistoryMuseum = Organization{
		OrganizationId:   "https://ror.org/039zvsn29",
		OrganizationName: "Natural History Museum",
		Url:              "https://www.nhm.ac.uk",
		Location: Place{
			PlaceId: "https://www.geonames.org/2643743",
			Name:    "London, UK",
		},
	}
)

// Returns the well-known organization with the given ROR identifier, if any.
func KnownOrganization(id string) (Organization, bool) {
	for _, org := range []Organization{
		WellcomeSangerInstitute,
		NaturalisBiodiversityCenter,
		NaturalHistoryMuseum,
	} {
		if org.OrganizationId == id {
			return org, true
		}
	}
	return Organization{}, false
}

// the default license for crate metadata
var CC0 = License{
	Id:   "https://spdx.org/licenses/CC0-1.0",
	Name: "Creative Commons Zero v1.0 Universal",
	Url:  "https://creativecommons.org/publicdomain/zero/1.0/legalcode",
}
