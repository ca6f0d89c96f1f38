package resume

// Content 表示从简历文本中切出的段落以及申请人的基本信息。
// 每个段落列表要么为空，要么只包含一个完整的文本块。
type Content struct {
	Education      []string     `json:"education"`
	Qualifications []string     `json:"qualifications"`
	Projects       []string     `json:"projects"`
	PersonalInfo   PersonalInfo `json:"personal_info"`
}

// PersonalInfo 来自表单字段，而不是简历文本。
type PersonalInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// EmptyContent 返回所有段落均为空（非 nil）的内容，序列化结果为 []。
func EmptyContent() Content {
	return Content{
		Education:      []string{},
		Qualifications: []string{},
		Projects:       []string{},
	}
}

// Normalize 把 nil 段落替换为空切片。
func (c *Content) Normalize() {
	if c.Education == nil {
		c.Education = []string{}
	}
	if c.Qualifications == nil {
		c.Qualifications = []string{}
	}
	if c.Projects == nil {
		c.Projects = []string{}
	}
}
