package youtrack

import (
	"net/url"
	"strconv"
	"strings"
)

// IssueFields is the fixed projection requested for every issue.
const IssueFields = "id,idReadable,summary,description," +
	"project(shortName),created,updated,resolved,reporter(login,fullName,ringId),commentsCount," +
	"customFields(id,name,value(id,name,login,ringId))," +
	"comments(id,created,text,author(login,name,ringId))," +
	"links(direction,linkType(name,sourceToTarget,targetToSource,directed,aggregation),issues(id,idReadable))," +
	"tags(id,name)"

const userFields = "id,login,name,fullName,ringId,guest,email"

const changeFields = "id,name,login,ringId,email,value(id,name,login,ringId),reaction," +
	"text,bundle(id,name),project(id,shortName),numberInProject," +
	"state,files,fetched,version,urls,processors(id,project(id,shortName),server(id))," +
	"author(" + userFields + ")"

// ActivityFields is the fixed projection requested for every activity item.
const ActivityFields = "id,idReadable,timestamp,targetMember(id)," +
	"target(id,issue(id),name,project(id,shortName),branch,date," +
	"reporter(" + userFields + ")," +
	"idReadable,text,issue(id)," +
	"votes," +
	"visibility(id,permittedGroups(id,name,ringId),permittedUsers(id,fullName,ringId,email))," +
	"created,resolved,customFields(id,name,value(id,name,login,ringId)))," +
	"memberName," +
	"category(id)," +
	"field(id,name)," +
	"added(" + changeFields + ")," +
	"removed(" + changeFields + ")," +
	"author(" + userFields + ")"

// AllCategories lists every activity category requested by default.
var AllCategories = []string{
	"CommentsCategory",
	"CommentTextCategory",
	"AttachmentsCategory",
	"AttachmentRenameCategory",
	"CustomFieldCategory",
	"DescriptionCategory",
	"IssueCreatedCategory",
	"IssueResolvedCategory",
	"LinksCategory",
	"ProjectCategory",
	"IssueVisibilityCategory",
	"SprintCategory",
	"SummaryCategory",
	"TagsCategory",
	"CommentReactionCategory",
	"VotersCategory",
	"VcsChangeCategory",
}

// IssuesURL returns the issue search URL for one page.
func (c *Client) IssuesURL(query string, skip, top int) string {
	var sb strings.Builder
	sb.WriteString(c.apiURL)
	sb.WriteString("issues?query=")
	sb.WriteString(url.QueryEscape(query))
	sb.WriteString("&fields=")
	sb.WriteString(IssueFields)
	writeCursor(&sb, skip, top)
	return sb.String()
}

// ActivitiesURL returns the per-issue activities URL for one page.
func (c *Client) ActivitiesURL(issueID string, categories []string, skip, top int) string {
	if len(categories) == 0 {
		categories = AllCategories
	}
	escaped := make([]string, len(categories))
	for i, cat := range categories {
		escaped[i] = url.QueryEscape(cat)
	}

	var sb strings.Builder
	sb.WriteString(c.apiURL)
	sb.WriteString("issues/")
	sb.WriteString(url.PathEscape(issueID))
	sb.WriteString("/activities?categories=")
	sb.WriteString(strings.Join(escaped, ","))
	sb.WriteString("&fields=")
	sb.WriteString(ActivityFields)
	writeCursor(&sb, skip, top)
	return sb.String()
}

func writeCursor(sb *strings.Builder, skip, top int) {
	sb.WriteString("&$skip=")
	sb.WriteString(strconv.Itoa(skip))
	sb.WriteString("&$top=")
	sb.WriteString(strconv.Itoa(top))
}
